package ops

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/dewco/dewsite/internal/content"
	"github.com/dewco/dewsite/internal/db"
	"github.com/dewco/dewsite/internal/errors"
)

// MaxSeedFileBytes bounds a single seed file.
const MaxSeedFileBytes = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path    string // seed file, or a directory whose seed files are all imported
	Replace bool   // swap each imported collection wholesale instead of upserting
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Files       int            `json:"files"`
	Imported    int            `json:"imported"`
	Collections map[string]int `json:"collections"`
	Errors      []ImportError  `json:"errors"`
}

// ImportError represents a record or file that was skipped.
type ImportError struct {
	File    string `json:"file"`
	Index   int    `json:"index"`
	Key     string `json:"key,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import loads seed files into the store. Each file maps to a collection by
// its base name (see CollectionFor). A file holds either a list of records
// or a single object, stored as one document keyed by the file's base name.
// Records are keyed by "_key", then "id", then "slug"; records with none of
// these get a ULID. Bad records are skipped and reported; store failures
// abort the import.
func Import(ctx context.Context, store *db.Store, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead); err != nil {
		return nil, err
	}

	files, err := seedFiles(input.Path)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Collections: map[string]int{}, Errors: []ImportError{}}
	byCollection := map[string][]content.Document{}
	seen := map[string]map[string]bool{}
	entropy := ulid.Monotonic(rand.Reader, 0)

	for _, file := range files {
		collection, ok := CollectionFor(file)
		if !ok {
			out.Errors = append(out.Errors, ImportError{
				File:    file,
				Code:    "UNKNOWN_COLLECTION",
				Message: fmt.Sprintf("no collection for %q; known: %s", filepath.Base(file), strings.Join(KnownCollections(), ", ")),
			})
			continue
		}
		out.Files++

		docs, parseErrors := parseSeedFile(file, collection, entropy)
		out.Errors = append(out.Errors, parseErrors...)

		if seen[collection] == nil {
			seen[collection] = map[string]bool{}
		}
		for i, d := range docs {
			if seen[collection][d.Key] {
				out.Errors = append(out.Errors, ImportError{
					File:    file,
					Index:   i,
					Key:     d.Key,
					Code:    "DUPLICATE_KEY",
					Message: fmt.Sprintf("key %q already imported into %s", d.Key, collection),
				})
				continue
			}
			seen[collection][d.Key] = true
			byCollection[collection] = append(byCollection[collection], d)
		}
	}

	names := make([]string, 0, len(byCollection))
	for name := range byCollection {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewTimeout("import", err)
		}
		docs := byCollection[name]
		if input.Replace {
			err = store.ReplaceCollection(ctx, name, docs)
		} else {
			err = store.PutMany(ctx, docs)
		}
		if err != nil {
			return nil, err
		}
		out.Collections[name] = len(docs)
		out.Imported += len(docs)
	}
	return out, nil
}

// seedFiles lists the seed files at path: path itself, or the seed files
// directly inside it in name order.
func seedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewNotFound("path", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read seed directory: %w", err))
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && isSeedFile(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

// parseSeedFile decodes one seed file into documents of collection.
func parseSeedFile(path, collection string, entropy io.Reader) ([]content.Document, []ImportError) {
	fail := func(code, msg string) []ImportError {
		return []ImportError{{File: path, Code: code, Message: msg}}
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, fail("READ_ERROR", err.Error())
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, MaxSeedFileBytes+1))
	if err != nil {
		return nil, fail("READ_ERROR", err.Error())
	}
	if len(raw) > MaxSeedFileBytes {
		return nil, fail("FILE_TOO_LARGE", fmt.Sprintf("seed file exceeds %d bytes", MaxSeedFileBytes))
	}

	value, err := decodeSeed(path, raw)
	if err != nil {
		return nil, fail("PARSE_ERROR", err.Error())
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch v := value.(type) {
	case map[string]any:
		key := base
		if r := content.Record(v); r.String(KeyField) != "" || r.String("id") != "" || r.String("slug") != "" {
			key = recordKey(v, entropy)
		}
		delete(v, KeyField)
		return []content.Document{{Collection: collection, Key: key, Data: content.Record(v)}}, nil

	case []any:
		var docs []content.Document
		var errs []ImportError
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				errs = append(errs, ImportError{
					File:    path,
					Index:   i,
					Code:    "INVALID_RECORD",
					Message: fmt.Sprintf("record must be an object, got %T", item),
				})
				continue
			}
			key := recordKey(rec, entropy)
			delete(rec, KeyField)
			docs = append(docs, content.Document{Collection: collection, Key: key, Data: content.Record(rec)})
		}
		return docs, errs

	case nil:
		return nil, nil
	}
	return nil, fail("PARSE_ERROR", fmt.Sprintf("seed file must hold a list or an object, got %T", value))
}

// decodeSeed parses JSON or YAML into JSON-shaped values: objects are
// map[string]any and numbers float64, whichever format the file is in.
func decodeSeed(path string, raw []byte) (any, error) {
	var value any
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtYAML, ExtYML:
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		// Round-trip through JSON so YAML ints and nested maps take the
		// same shapes as JSON input.
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("YAML is not representable as JSON: %w", err)
		}
		value = nil
		if err := json.Unmarshal(b, &value); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return value, nil
}

func recordKey(rec map[string]any, entropy io.Reader) string {
	r := content.Record(rec)
	for _, field := range []string{KeyField, "id", "slug"} {
		if k := strings.TrimSpace(r.String(field)); k != "" {
			return k
		}
	}
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
