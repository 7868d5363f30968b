// Package watcher reports changes to the declaration and config files that
// feed a generation run.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Op is the kind of change observed on a path.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   Op
}

// DefaultPollInterval is the default polling interval for file change detection.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultDebounce batches bursts of events such as an editor's save.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Paths are files or directories. Only files inside a directory tree
	// with one of Extensions are tracked.
	Paths      []string
	Extensions []string // e.g., [".ts", ".yaml"]
	Debounce   time.Duration
	// Poll forces the polling backend. Otherwise fsnotify is used and
	// polling is the fallback when it can't be set up.
	Poll         bool
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Watcher watches paths for changes and calls onChange with debounced
// batches. onChange runs on its own goroutine, never concurrently with
// itself.
type Watcher struct {
	paths        []string
	extensions   []string
	debounce     time.Duration
	poll         bool
	pollInterval time.Duration
	logger       *zap.Logger
	onChange     func(events []Event)

	mu       sync.Mutex
	pending  []Event
	timer    *time.Timer
	flushing sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a new file watcher.
func New(opts Options, onChange func(events []Event)) *Watcher {
	w := &Watcher{
		extensions:   opts.Extensions,
		debounce:     opts.Debounce,
		poll:         opts.Poll,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
		onChange:     onChange,
		stopCh:       make(chan struct{}),
	}
	for _, p := range opts.Paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		w.paths = append(w.paths, filepath.Clean(p))
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Watch blocks until ctx is done or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	if len(w.paths) == 0 {
		return fmt.Errorf("watcher: no paths to watch")
	}
	defer w.cancelPending()
	if !w.poll {
		fsw, err := w.setupNotify()
		if err == nil {
			return w.watchNotify(ctx, fsw)
		}
		w.logger.Warn("file notifications unavailable, falling back to polling", zap.Error(err))
	}
	return w.watchPoll(ctx)
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// setupNotify watches the parent directory of every file so that editors
// replacing a file by rename are still seen. Watched directories are added
// with all of their subdirectories.
func (w *Watcher) setupNotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	added := make(map[string]bool)
	for _, p := range w.paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			err = w.addTree(fsw, p, added)
			if err != nil {
				fsw.Close()
				return nil, err
			}
			continue
		}
		if err := w.addDir(fsw, filepath.Dir(p), added); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

func (w *Watcher) addDir(fsw *fsnotify.Watcher, dir string, added map[string]bool) error {
	if added[dir] {
		return nil
	}
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	added[dir] = true
	w.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, added map[string]bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Vanished while walking.
			if path != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.addDir(fsw, path, added)
	})
}

// insideDir reports whether path lies under one of the watched directories.
func (w *Watcher) insideDir(path string) bool {
	for _, p := range w.paths {
		if rel, err := filepath.Rel(p, path); err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) watchNotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	defer fsw.Close()
	added := make(map[string]bool)
	for _, dir := range fsw.WatchList() {
		added[dir] = true
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Has(fsnotify.Create) && w.insideDir(path) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if err := w.addTree(fsw, path, added); err != nil {
						w.logger.Warn("watch error", zap.Error(err))
					}
					if events := w.filesIn(path); len(events) > 0 {
						w.queue(events)
					}
					continue
				}
			}
			if !w.tracks(path) {
				continue
			}
			var op Op
			switch {
			case event.Has(fsnotify.Create):
				op = OpCreate
			case event.Has(fsnotify.Write):
				op = OpWrite
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				op = OpRemove
			default:
				continue
			}
			w.queue([]Event{{Path: path, Op: op}})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// tracks reports whether path is one of the watched files, or a file
// with a matching extension inside a watched directory.
func (w *Watcher) tracks(path string) bool {
	if slices.Contains(w.paths, path) {
		return true
	}
	return w.insideDir(path) && w.matchesExt(path)
}

func (w *Watcher) matchesExt(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return slices.Contains(w.extensions, filepath.Ext(path))
}

func (w *Watcher) watchPoll(ctx context.Context) error {
	snapshot := w.buildSnapshot()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			newSnapshot := w.buildSnapshot()
			if events := w.diff(snapshot, newSnapshot); len(events) > 0 {
				w.queue(events)
			}
			snapshot = newSnapshot
		}
	}
}

// queue adds events to the pending batch and restarts the debounce timer.
func (w *Watcher) queue(events []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, events...)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.flushing.Lock()
	defer w.flushing.Unlock()

	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()
	if len(pending) > 0 && w.onChange != nil {
		w.onChange(pending)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
}

type fileInfo struct {
	modTime time.Time
	size    int64
}

func (w *Watcher) buildSnapshot() map[string]fileInfo {
	snap := make(map[string]fileInfo)
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			snap[p] = fileInfo{modTime: info.ModTime(), size: info.Size()}
			continue
		}
		filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if w.matchesExt(path) {
				snap[path] = fileInfo{modTime: info.ModTime(), size: info.Size()}
			}
			return nil
		})
	}
	return snap
}

// filesIn returns a create event for every tracked file under dir. Files
// written before the directory was watched are otherwise missed.
func (w *Watcher) filesIn(dir string) []Event {
	var events []Event
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.matchesExt(path) {
			events = append(events, Event{Path: path, Op: OpCreate})
		}
		return nil
	})
	return events
}

// diff returns one event per changed path, sorted by path.
func (w *Watcher) diff(old, new map[string]fileInfo) []Event {
	var events []Event

	for path, newInfo := range new {
		if oldInfo, ok := old[path]; ok {
			if !newInfo.modTime.Equal(oldInfo.modTime) || newInfo.size != oldInfo.size {
				events = append(events, Event{Path: path, Op: OpWrite})
			}
		} else {
			events = append(events, Event{Path: path, Op: OpCreate})
		}
	}

	for path := range old {
		if _, ok := new[path]; !ok {
			events = append(events, Event{Path: path, Op: OpRemove})
		}
	}

	slices.SortFunc(events, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return events
}
