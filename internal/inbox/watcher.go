package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// Subdirectories that receive consumed files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Handler applies one outcome.
type Handler func(ctx context.Context, o models.Outcome) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher consumes outcome files dropped into a directory. Each file is
// parsed, every outcome in it is passed to the handler, and the file is
// moved to processed/ or, on any error, failed/.
type Watcher struct {
	dir    string
	handle Handler
	logger *zap.Logger

	mu        sync.Mutex // serializes file consumption
	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a Watcher for dir, creating it and its subdirectories.
func New(dir string, handle Handler, opts ...Option) (*Watcher, error) {
	if handle == nil {
		return nil, errors.New("inbox handler is nil")
	}
	for _, d := range []string{dir, filepath.Join(dir, ProcessedDir), filepath.Join(dir, FailedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("create inbox directory: %w", err)
		}
	}

	w := &Watcher{dir: dir, handle: handle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("inbox")
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Processed returns the number of files consumed successfully.
func (w *Watcher) Processed() int64 {
	return w.processed.Load()
}

// Failed returns the number of files moved to failed/.
func (w *Watcher) Failed() int64 {
	return w.failed.Load()
}

// Run drains files already present, then consumes new ones as they appear
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Files created between Add and this drain are seen twice at most;
	// the second attempt finds them gone.
	if _, err := w.ProcessPending(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isOutcomeFile(event.Name) {
				continue
			}
			w.consume(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// ProcessPending consumes every outcome file currently in the directory, in
// name order, and returns how many were consumed.
func (w *Watcher) ProcessPending(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("list inbox: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && isOutcomeFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		if w.consume(ctx, filepath.Join(w.dir, name)) {
			n++
		}
	}
	return n, nil
}

// consume processes one file and reports whether it was moved out of the inbox.
func (w *Watcher) consume(ctx context.Context, path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		// Already consumed through an earlier event.
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("read outcome file failed", zap.String("file", path), zap.Error(err))
		}
		return false
	}
	if len(data) == 0 {
		// Still being written; a later Write event will bring it back.
		return false
	}

	if err := w.apply(ctx, data); err != nil {
		w.logger.Warn("outcome file rejected", zap.String("file", path), zap.Error(err))
		w.move(path, FailedDir)
		w.failed.Add(1)
		return true
	}

	w.move(path, ProcessedDir)
	w.processed.Add(1)
	w.logger.Debug("outcome file applied", zap.String("file", path))
	return true
}

func (w *Watcher) apply(ctx context.Context, data []byte) error {
	outcomes, err := ParseOutcomes(data)
	if err != nil {
		return err
	}
	var errs []error
	for _, o := range outcomes {
		if err := w.handle(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Watcher) move(path, sub string) {
	dst := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		w.logger.Warn("move outcome file failed", zap.String("file", path), zap.String("to", dst), zap.Error(err))
	}
}
