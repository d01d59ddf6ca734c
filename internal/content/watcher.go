package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/formationhub/contentd/internal/logging"
	"github.com/formationhub/contentd/internal/slug"
)

// DefaultDebounce is how long Watch waits for the filesystem to go quiet
// before triggering a pass.
const DefaultDebounce = 250 * time.Millisecond

// Watch monitors root for document changes and calls onChange once a burst
// of events has settled. Every call is expected to run a full discovery
// pass. It blocks until the context is cancelled.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, onChange func(context.Context)) error {
	if logger == nil {
		logger = logging.Discard()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, root); err != nil {
		return fmt.Errorf("adding content root to watcher: %w", err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			if !handleEvent(watcher, event) {
				continue
			}

			logger.Debug("content changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))

			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true

		case <-timer.C:
			pending = false
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}
			// Non-fatal (e.g. too many watches); the affected paths just
			// stop triggering passes.
			logger.Warn("content watcher error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent keeps the watch list current and reports whether the event
// should trigger a pass.
func handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if ignoreName(name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		// Lstat so symlinked directories outside the root are not followed.
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = addRecursive(watcher, event.Name)
			return true
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// Harmless if the path was not a watched directory.
		_ = watcher.Remove(event.Name)
		return true
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		return slug.HasDocumentExt(name)
	}

	return false
}

func ignoreName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp")
}

// addRecursive adds dir and every non-hidden directory below it.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		return watcher.Add(p)
	})
}
