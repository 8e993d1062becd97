package orchestrator

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// persistTracker records store failures so they can be surfaced without
// failing the operation that triggered them.
type persistTracker struct {
	logger *zap.Logger
	count  atomic.Int64

	mu      sync.Mutex
	lastErr error
}

func newPersistTracker(logger *zap.Logger) *persistTracker {
	return &persistTracker{logger: logger}
}

// track logs and counts err if it is non-nil.
func (t *persistTracker) track(op string, err error) {
	if err == nil {
		return
	}
	t.count.Add(1)
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	t.logger.Warn("persistence failed", zap.String("op", op), zap.Error(err))
}

func (t *persistTracker) failures() int64 {
	return t.count.Load()
}

func (t *persistTracker) last() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}
