// Package workspace lists the annotatable images of a directory and watches
// it for images being added or removed.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/menta2k/image-annotator/internal/utils"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before re-listing
const DefaultDebounce = 500 * time.Millisecond

// ListImages returns the names of the jpg/png files directly inside dir,
// sorted. Other files and subdirectories are ignored.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !utils.IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Watcher re-lists a directory whenever image files appear, disappear or
// are renamed
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func([]string)
	debounce time.Duration
}

// NewWatcher starts watching dir. onChange receives the new listing and is
// called from the goroutine running Run.
func NewWatcher(dir string, onChange func([]string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		onChange: onChange,
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce changes the settle delay
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run delivers listings until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			settled = timer.C
		case <-settled:
			settled = nil
			names, err := ListImages(w.dir)
			if err != nil {
				slog.Warn("watcher: re-list failed", "path", w.dir, "error", err)
				continue
			}
			w.onChange(names)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher: error", "path", w.dir, "error", err)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func relevant(event fsnotify.Event) bool {
	if !utils.IsImageFile(event.Name) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
