package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Config configures the watcher.
type Config struct {
	Root string
	// Include holds doublestar patterns matched against paths relative to
	// Root. Empty matches every file.
	Include []string
	// BackupSuffix names backups; they are never handed to the handler.
	BackupSuffix string
	Debounce     time.Duration
	Logger       *slog.Logger
}

// Handler processes a batch of changed binaries.
type Handler func(ctx context.Context, binaries []string)

// stamp identifies the state of a file cheaply.
type stamp struct {
	size    int64
	modTime time.Time
}

// Watcher watches a directory tree and passes written binaries to a
// Handler.
type Watcher struct {
	config    Config
	handle    Handler
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	ctx       context.Context

	// handleMu serializes handler runs and guards seen.
	handleMu sync.Mutex
	// seen is the state each binary had after the handler ran, so that the
	// handler's own writes do not trigger it again.
	seen map[string]stamp
}

// New creates a watcher. It validates the include patterns.
func New(cfg Config, handle Handler) (*Watcher, error) {
	for _, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		config:    cfg,
		handle:    handle,
		fsWatcher: fsWatcher,
		logger:    log.OrDiscard(cfg.Logger),
		seen:      make(map[string]stamp),
	}, nil
}

// Run starts the watch loop. It blocks until the context is cancelled.
// Pending binaries are processed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	// A batch that has started runs to completion.
	w.ctx = context.WithoutCancel(ctx)
	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.flush)
	defer w.debouncer.Stop()

	if err := w.addRecursive(w.config.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Root, err)
	}
	w.logger.Info("watching", "root", w.config.Root, "include", w.config.Include)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopped watching", "root", w.config.Root)
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

// addRecursive watches root and every directory below it except hidden
// ones.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Debug("skip unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w at %s (raise fs.inotify.max_user_watches): %v", ErrWatchLimitReached, path, err)
			}
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "too many open files")
}

// handleEvent queues files that were created or written.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(path), ".") {
				if err := w.addRecursive(path); err != nil {
					w.logger.Error("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if !w.matches(path) {
		return
	}
	w.logger.Log(context.Background(), log.LevelTrace, "binary changed", "path", path, "op", event.Op.String())
	w.debouncer.Add(path)
}

// matches reports whether path is a binary the handler should see.
func (w *Watcher) matches(path string) bool {
	if w.config.BackupSuffix != "" && strings.HasSuffix(path, w.config.BackupSuffix) {
		return false
	}
	if len(w.config.Include) == 0 {
		return true
	}
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.config.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// flush runs the handler on the binaries that still exist and changed since
// the handler last saw them.
func (w *Watcher) flush(paths []string) {
	w.handleMu.Lock()
	defer w.handleMu.Unlock()

	var changed []string
	for _, p := range paths {
		st, ok := statFile(p)
		if !ok {
			// Temporary files of the tool that wrote the binary
			continue
		}
		if prev, ok := w.seen[p]; ok && prev.equal(st) {
			continue
		}
		changed = append(changed, p)
	}
	if len(changed) == 0 {
		return
	}

	w.handle(w.ctx, changed)

	for _, p := range changed {
		if st, ok := statFile(p); ok {
			w.seen[p] = st
		}
	}
}

func (s stamp) equal(o stamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

func statFile(path string) (stamp, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return stamp{}, false
	}
	return stamp{size: info.Size(), modTime: info.ModTime()}, true
}
