package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gatekeep/pkg/logging"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// change before notifying, so a three-key save fires once.
const DefaultDebounceInterval = 250 * time.Millisecond

// Watch notifies onChange whenever another process rewrites or deletes the
// credentials file (for example `gatekeep logout` in a second terminal).
// It returns once the watch is established and stops when ctx is done.
func (b *FileBackend) Watch(ctx context.Context, onChange func()) error {
	if err := b.Ready(ctx); err != nil {
		return unavailable("watch", "", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return unavailable("watch", "", err)
	}
	if err := watcher.Add(b.dir); err != nil {
		_ = watcher.Close()
		return unavailable("watch", "", err)
	}

	w := &fileWatcher{
		fileName: filepath.Base(b.path),
		onChange: onChange,
		debounce: DefaultDebounceInterval,
	}

	// Capture channels before the goroutine starts so Close cannot race the reads.
	eventsCh := watcher.Events
	errorsCh := watcher.Errors

	go func() {
		defer func() {
			_ = watcher.Close()
			w.stop()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-eventsCh:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-errorsCh:
				if !ok {
					return
				}
				logging.Error("CredentialWatcher", err, "fsnotify error")
			}
		}
	}()

	logging.Debug("CredentialWatcher", "Watching %s for credential changes", b.dir)
	return nil
}

type fileWatcher struct {
	fileName string
	onChange func()
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (w *fileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != w.fileName {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.Debug("CredentialWatcher", "Credentials file changed: %s (%s)", event.Name, event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped && w.onChange != nil {
			w.onChange()
		}
	})
}

func (w *fileWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
