package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/db"
	"github.com/dewco/dewsite/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Dir         string   // required; created if missing
	Collections []string // optional, default: every non-empty collection
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Dir        string         `json:"dir"`
	Files      []ExportedFile `json:"files"`
	Count      int            `json:"count"`
	ExportedAt int64          `json:"exported_at"`
}

// ExportedFile is one written seed file.
type ExportedFile struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Count      int    `json:"count"`
}

// Export writes each collection to <dir>/<collection>.json as a list of
// records, each carrying its store key in "_key", so Import of the
// directory restores the same documents.
func Export(ctx context.Context, store *db.Store, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	if err := ValidatePath(input.Dir, PathCheckWrite); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(input.Dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	collections := input.Collections
	if len(collections) == 0 {
		counts, err := store.Collections(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range counts {
			collections = append(collections, c.Name)
		}
	}

	out := &ExportOutput{Dir: input.Dir, Files: []ExportedFile{}, ExportedAt: now.Unix()}
	for _, collection := range collections {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewTimeout("export", err)
		}

		docs, err := store.All(ctx, collection)
		if err != nil {
			return nil, err
		}
		records := make([]content.Record, 0, len(docs))
		for _, d := range docs {
			rec := make(content.Record, len(d.Data)+1)
			for k, v := range d.Data {
				rec[k] = v
			}
			rec[KeyField] = d.Key
			records = append(records, rec)
		}

		path := filepath.Join(input.Dir, SanitizeForFilename(collection)+ExtJSON)
		if err := writeJSONAtomic(path, records); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, ExportedFile{Collection: collection, Path: path, Count: len(records)})
		out.Count += len(records)
	}
	return out, nil
}

// DefaultExportDir is baseDir/exports/<timestamp>.
func DefaultExportDir(baseDir string, now time.Time) string {
	return filepath.Join(baseDir, "exports", now.Format("2006-01-02T150405"))
}

// writeJSONAtomic writes v as indented JSON to a temp file and renames it
// into place, so an existing file survives a failed write.
func writeJSONAtomic(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	payload = append(payload, '\n')
	return writeFileAtomic(path, payload, 0600)
}

func writeFileAtomic(path string, payload []byte, perm os.FileMode) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create %s: %w", filepath.Base(path), err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(payload); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close %s: %w", filepath.Base(path), err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("%s is a symlink", path))
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("destination already exists; overwriting is not supported on Windows (choose a new directory)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err))
	}

	success = true
	return nil
}
