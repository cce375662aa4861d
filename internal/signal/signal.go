// Package signal implements the payload-less cross-process notification the
// monitoring helper raises after it updates the shared counter store.
//
// The helper touches a file next to the store; the interactive process
// watches the directory with fsnotify. Delivery is best effort: signals
// raised while nobody watches are lost, and bursts coalesce into one.
package signal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/rewardgate/internal/logger"
)

// DefaultDebounce coalesces bursts of file events into one signal.
const DefaultDebounce = 50 * time.Millisecond

// Raise posts a signal by rewriting the signal file.
func Raise(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create signal directory: %w", err)
	}
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.WriteFile(path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("failed to raise signal: %w", err)
	}
	return nil
}

// Watcher observes a signal file and delivers coalesced notifications.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	notify   chan struct{}
	errs     chan error
	stopChan chan struct{}
	received atomic.Uint64

	mu            sync.Mutex
	debounceTimer *time.Timer
	closed        bool
}

// Watch starts observing path. A debounce of zero uses DefaultDebounce.
func Watch(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create signal directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory so the file may be created after we start.
	if err := fw.Add(dir); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  fw,
		notify:   make(chan struct{}, 1),
		errs:     make(chan error, 8),
		stopChan: make(chan struct{}),
	}

	go w.watchLoop()
	return w, nil
}

// C delivers one value per coalesced signal.
func (w *Watcher) C() <-chan struct{} {
	return w.notify
}

// Errors delivers watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Received returns the number of signals delivered so far.
func (w *Watcher) Received() uint64 {
	return w.received.Load()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.deliver)
}

func (w *Watcher) deliver() {
	w.received.Add(1)
	select {
	case w.notify <- struct{}{}:
	default:
		// A signal is already pending; the consumer will see it.
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	close(w.stopChan)
	return w.watcher.Close()
}
