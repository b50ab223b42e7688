package admin

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"cmdtutor/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// RosterWatcher reloads a roster file when it changes on disk.
// It watches the parent directory, since editors often replace the file
// instead of writing it in place.
type RosterWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	reload   func(path string) error
	debounce time.Duration
	pending  time.Time // zero when nothing is pending
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	stats WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events  int
	Reloads int
	Errors  int
}

// NewRosterWatcher creates a watcher that calls reload for path.
func NewRosterWatcher(path string, reload func(path string) error) (*RosterWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RosterWatcher{
		watcher:  w,
		path:     abs,
		reload:   reload,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the settle time. Call before Start.
func (rw *RosterWatcher) SetDebounce(d time.Duration) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.debounce = d
}

// Start begins watching. It does not block; the loop ends when ctx is
// cancelled or Stop is called.
func (rw *RosterWatcher) Start(ctx context.Context) error {
	rw.mu.Lock()
	if rw.running {
		rw.mu.Unlock()
		return nil
	}
	rw.running = true
	rw.mu.Unlock()

	if err := rw.watcher.Add(filepath.Dir(rw.path)); err != nil {
		rw.mu.Lock()
		rw.running = false
		rw.mu.Unlock()
		_ = rw.watcher.Close()
		close(rw.doneCh)
		return err
	}
	logging.Admin("RosterWatcher: watching %s", rw.path)

	go rw.run(ctx)
	return nil
}

// Stop ends the loop and waits for it to exit.
func (rw *RosterWatcher) Stop() {
	rw.mu.Lock()
	if !rw.running {
		rw.mu.Unlock()
		return
	}
	rw.running = false
	rw.mu.Unlock()

	close(rw.stopCh)
	<-rw.doneCh
	logging.Admin("RosterWatcher: stopped")
}

// Done is closed once the loop has exited.
func (rw *RosterWatcher) Done() <-chan struct{} { return rw.doneCh }

func (rw *RosterWatcher) run(ctx context.Context) {
	defer close(rw.doneCh)
	defer rw.watcher.Close()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Admin("RosterWatcher: context cancelled")
			return

		case <-rw.stopCh:
			return

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			rw.handleEvent(event)

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logging.AdminWarn("RosterWatcher error: %v", err)
			rw.mu.Lock()
			rw.stats.Errors++
			rw.mu.Unlock()

		case <-ticker.C:
			rw.processSettled()
		}
	}
}

func (rw *RosterWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != rw.path {
		return
	}
	// A removed file is left alone; the next create or write reloads it.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	logging.Get(logging.CategoryAdmin).Debug("RosterWatcher: %s", event)

	rw.mu.Lock()
	rw.stats.Events++
	rw.pending = time.Now()
	rw.mu.Unlock()
}

func (rw *RosterWatcher) processSettled() {
	rw.mu.Lock()
	if rw.pending.IsZero() || time.Since(rw.pending) < rw.debounce {
		rw.mu.Unlock()
		return
	}
	rw.pending = time.Time{}
	rw.mu.Unlock()

	err := rw.reload(rw.path)

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if err != nil {
		rw.stats.Errors++
		logging.AdminWarn("RosterWatcher: reload of %s failed: %v", rw.path, err)
		return
	}
	rw.stats.Reloads++
}

// Stats returns a copy of the counters.
func (rw *RosterWatcher) Stats() WatcherStats {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.stats
}

// Watch starts a watcher that reloads path into the console's assigner
// whenever the file changes.
func (c *Console) Watch(ctx context.Context, path string) (*RosterWatcher, error) {
	rw, err := NewRosterWatcher(path, c.Reload)
	if err != nil {
		return nil, err
	}
	if err := rw.Start(ctx); err != nil {
		return nil, err
	}
	return rw, nil
}
