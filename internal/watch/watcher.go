// Package watch regenerates weighted functions when their sources change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"weightgen/internal/generate"
	"weightgen/internal/logging"
)

// Processor is the part of the generator the watcher drives.
type Processor interface {
	Run(ctx context.Context, paths []string) ([]generate.Result, error)
	HostFor(path string) (generate.Host, bool)
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// Watcher watches source directories and reruns the generator for files that
// settled past the debounce window.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	proc        Processor
	roots       []string
	recursive   bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onResults   func([]generate.Result, error)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Options configures a Watcher.
type Options struct {
	Roots     []string
	Recursive bool
	Debounce  time.Duration
	// OnResults is called after every regeneration run.
	OnResults func([]generate.Result, error)
}

// New creates a Watcher. It does not watch anything until Start.
func New(proc Processor, opts Options) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	return &Watcher{
		watcher:     w,
		proc:        proc,
		roots:       opts.Roots,
		recursive:   opts.Recursive,
		debounceMap: make(map[string]time.Time),
		debounceDur: opts.Debounce,
		onResults:   opts.OnResults,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until Stop or until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.watcher.Close()
			return err
		}
	}
	logging.Watch("watching %d directories", len(w.watcher.WatchList()))

	go w.run(ctx)
	return nil
}

// addTree watches dir and, when recursive, every directory below it.
func (w *Watcher) addTree(dir string) error {
	if !w.recursive {
		return w.watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && generate.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		logging.WatchDebug("watching %s", path)
		return w.watcher.Add(path)
	})
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := min(w.debounceDur/2, 100*time.Millisecond)
	debounceTicker := time.NewTicker(max(tick, time.Millisecond))
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 && w.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !generate.SkipDir(info.Name()) {
			if err := w.addTree(event.Name); err != nil {
				logging.WatchError("failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}
	if _, ok := w.proc.HostFor(event.Name); !ok {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	case "delete", "rename":
		w.stats.FilesDeleted++
	}
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebouncedEvents regenerates the files whose last event is older than
// the debounce window.
func (w *Watcher) processDebouncedEvents(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()
	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)

	var present []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			present = append(present, path)
		}
	}
	for _, path := range settled {
		if _, err := os.Stat(path); err == nil {
			add(path)
			continue
		}
		w.removeOrphan(path)
		if src, ok := w.sourceOf(path); ok {
			logging.Watch("generated %s deleted, regenerating from %s", path, src)
			add(src)
		}
	}
	if len(present) == 0 {
		return
	}

	results, err := w.proc.Run(ctx, present)
	w.mu.Lock()
	w.stats.Runs++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()
	if err != nil {
		logging.WatchError("regeneration failed: %v", err)
	}
	if w.onResults != nil {
		w.onResults(results, err)
	}
}

// removeOrphan deletes the generated output of a source that no longer
// exists.
func (w *Watcher) removeOrphan(path string) {
	host, ok := w.proc.HostFor(path)
	if !ok {
		return
	}
	out := host.OutputPath(path)
	data, err := os.ReadFile(out)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WatchError("failed to read %s: %v", out, err)
		}
		return
	}
	if !host.IsGenerated(out, data) {
		return
	}
	if err := os.Remove(out); err != nil {
		logging.WatchError("failed to remove %s: %v", out, err)
		return
	}
	logging.Watch("source %s deleted, removed %s", path, out)
}

// sourceOf finds the input whose generated output is path, looking at the
// files next to it.
func (w *Watcher) sourceOf(path string) (string, bool) {
	host, ok := w.proc.HostFor(path)
	if !ok {
		return "", false
	}
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if candidate == path {
			continue
		}
		if h, ok := w.proc.HostFor(candidate); !ok || h != host {
			continue
		}
		if host.OutputPath(candidate) == path {
			return candidate, true
		}
	}
	return "", false
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the watcher is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.watcher.WatchList()
}
