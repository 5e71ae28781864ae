package ops

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dewco/dewsite/internal/db"
	"github.com/dewco/dewsite/internal/errors"
)

// DefaultDebounce collapses a burst of editor writes into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Reload imports input and then makes the change visible: cached snapshots
// of the imported collections are dropped and the repository starts a new
// session. cache and repo may be nil.
func Reload(ctx context.Context, store *db.Store, input ImportInput, repo Resetter, cache Invalidator) (*ImportOutput, error) {
	out, err := Import(ctx, store, input)
	if err != nil {
		return nil, err
	}
	if cache != nil && len(out.Collections) > 0 {
		names := make([]string, 0, len(out.Collections))
		for name := range out.Collections {
			names = append(names, name)
		}
		sort.Strings(names)
		if _, err := cache.Invalidate(ctx, names...); err != nil {
			return out, errors.NewTransientFetch("invalidate snapshot cache", err)
		}
	}
	if repo != nil {
		repo.Reset()
	}
	return out, nil
}

// Watch calls onChange after seed files in dir are written, created,
// removed or renamed, once per burst of changes no closer than debounce
// apart. It blocks until ctx is done. onChange errors are logged, not
// returned, so one bad edit does not stop the watcher.
func Watch(ctx context.Context, dir string, debounce time.Duration, log logrus.FieldLogger, onChange func(context.Context) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewInternal(fmt.Errorf("create file watcher: %w", err))
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.NewInternal(fmt.Errorf("watch %s: %w", dir, err))
	}
	log.WithField("dir", dir).Info("watching seed files")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSeedFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("seed file changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := onChange(ctx); err != nil {
				log.WithError(err).Error("reload after seed change failed")
				continue
			}
			log.Info("content reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("file watcher error")
		}
	}
}
