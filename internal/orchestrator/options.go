package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/swarm/internal/persist"
	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// RequiredConfig contains the minimal required configuration for a Coordinator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Router routes tasks to specialists.
	Router *resonance.Router
	// Board holds the stigmergic signals.
	Board *stigmergy.Board
}

// Option configures a Coordinator. Use With* functions to create Options.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	store         persist.Store
	sweepInterval time.Duration
	exploration   []string
	logger        *zap.Logger
}

func defaultOptions() coordinatorOptions {
	return coordinatorOptions{
		sweepInterval: stigmergy.DefaultSweepInterval,
		logger:        zap.NewNop(),
	}
}

// WithStore persists profiles and signals to s. Without a store the
// coordinator is purely in-memory.
func WithStore(s persist.Store) Option {
	return func(o *coordinatorOptions) { o.store = s }
}

// WithSweepInterval sets how often Run sweeps the board. Non-positive
// values keep the default.
func WithSweepInterval(d time.Duration) Option {
	return func(o *coordinatorOptions) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithExploration sets the approaches workers try on tasks with no signals.
func WithExploration(approaches []string) Option {
	return func(o *coordinatorOptions) { o.exploration = approaches }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *coordinatorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
