package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher monitors the .podium/signals directory so an operator
// can abort in-flight requests by touching a file instead of killing
// the process. Touching "abort" aborts everything; touching
// "abort-<requestID>" aborts one request.
type SignalWatcher struct {
	signalsDir string
	pool       *Pool

	mu      sync.Mutex
	aborted bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewSignalWatcher creates the signals directory under dir/.podium and
// starts watching it. A watcher setup failure is not fatal; the
// returned SignalWatcher simply never fires.
func NewSignalWatcher(dir string, pool *Pool) (*SignalWatcher, error) {
	signalsDir := filepath.Join(dir, ".podium", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sw := &SignalWatcher{
		signalsDir: signalsDir,
		pool:       pool,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sw, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sw, nil
	}
	sw.watcher = watcher
	go sw.watch()

	return sw, nil
}

// watch reacts to files created or written in the signals directory.
func (sw *SignalWatcher) watch() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sw.apply(filepath.Base(event.Name))
		case <-sw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

func (sw *SignalWatcher) apply(name string) {
	if name == "abort" {
		// AbortAll first: once Aborted reports true, every live
		// request has already been told to stop.
		sw.pool.AbortAll()
		sw.mu.Lock()
		sw.aborted = true
		sw.mu.Unlock()
		return
	}
	if requestID, ok := strings.CutPrefix(name, "abort-"); ok && requestID != "" {
		if handle := sw.pool.Handle(requestID); handle != nil {
			handle.Abort()
		}
	}
}

// Aborted reports whether a global abort signal was seen.
func (sw *SignalWatcher) Aborted() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.aborted
}

// Close stops watching and removes any consumed signal files.
func (sw *SignalWatcher) Close() error {
	sw.once.Do(func() { close(sw.done) })
	if sw.watcher != nil {
		return sw.watcher.Close()
	}
	return nil
}
