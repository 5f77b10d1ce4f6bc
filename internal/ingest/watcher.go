package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/logger"
)

// DefaultDebounce is the quiet period before a batch of changes is
// delivered. Editors write files in bursts; one save should trigger one
// re-index, not five.
const DefaultDebounce = 500 * time.Millisecond

// ChangeOp says what happened to a path.
type ChangeOp int

const (
	// ChangeWrite means the path was created or modified and should be
	// re-indexed.
	ChangeWrite ChangeOp = iota

	// ChangeRemove means the path was removed or renamed away and its
	// document should be deleted.
	ChangeRemove
)

// Change is one debounced filesystem change.
type Change struct {
	Path string
	Op   ChangeOp
}

// WatcherConfig holds watcher settings.
type WatcherConfig struct {
	// Ignores lists names and glob patterns to skip. Nil means
	// DefaultIgnores(); hidden entries are always skipped.
	Ignores []string

	// Debounce is the quiet period before a batch is delivered.
	Debounce time.Duration
}

// Watcher follows directories with fsnotify and delivers debounced
// batches of changes to indexable files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ignores  []string
	debounce time.Duration

	mu     sync.Mutex
	closed bool
}

// NewWatcher creates a watcher, applying defaults for zero values.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if cfg.Ignores == nil {
		cfg.Ignores = DefaultIgnores()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		ignores:  cfg.Ignores,
		debounce: cfg.Debounce,
	}, nil
}

// Watch begins watching the given directories recursively. The returned
// channel delivers batches of changes, each batch sorted by path, and
// closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, roots []string) (<-chan []Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, fmt.Errorf("watcher is closed")
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("root path error: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: watch target %s is not a directory", domain.ErrInvalidInput, abs)
		}
		if err := w.addRecursive(abs); err != nil {
			return nil, err
		}
	}

	out := make(chan []Change, 1)
	go w.run(ctx, out)
	return out, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}

// addRecursive registers root and every non-ignored subdirectory.
// fsnotify watches are not recursive on their own.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (matchesIgnores(name, w.ignores) || isHidden(name)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, out chan<- []Change) {
	defer close(out)

	pending := make(map[string]ChangeOp)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			ch, accept := w.translate(ev)
			if !accept {
				continue
			}
			// Last op wins: a write followed by a remove is a remove.
			pending[ch.Path] = ch.Op
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			batch := make([]Change, 0, len(pending))
			for path, op := range pending {
				batch = append(batch, Change{Path: path, Op: op})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
			pending = make(map[string]ChangeOp)
			timer = nil
			fire = nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// translate filters one fsnotify event down to a change the indexer
// cares about.
func (w *Watcher) translate(ev fsnotify.Event) (Change, bool) {
	name := filepath.Base(ev.Name)
	if isHidden(name) || matchesIgnores(name, w.ignores) {
		return Change{}, false
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		// A new directory joins the watch set so writes under it keep
		// arriving; it is not itself a change.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				logger.Warn("watching %s: %v", ev.Name, err)
			}
			return Change{}, false
		}
		if !indexableExt(ev.Name) {
			return Change{}, false
		}
		return Change{Path: ev.Name, Op: ChangeWrite}, true

	case ev.Op.Has(fsnotify.Write):
		if !indexableExt(ev.Name) {
			return Change{}, false
		}
		return Change{Path: ev.Name, Op: ChangeWrite}, true

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if !indexableExt(ev.Name) {
			return Change{}, false
		}
		return Change{Path: ev.Name, Op: ChangeRemove}, true
	}

	// Chmod and friends never warrant a re-index.
	return Change{}, false
}
