package resonance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults for Router construction.
const (
	DefaultVigilance      = 0.7
	DefaultMaxSpecialists = 10
	DefaultLearningRate   = 0.3
	DefaultHistoryCap     = 20
)

// Option configures a Router. Use With* functions to create Options.
type Option func(*routerOptions)

type routerOptions struct {
	vigilance      float64
	maxSpecialists int
	learningRate   float64
	historyCap     int
	newID          func() string
	now            func() time.Time
	logger         *zap.Logger
}

func defaultOptions() routerOptions {
	return routerOptions{
		vigilance:      DefaultVigilance,
		maxSpecialists: DefaultMaxSpecialists,
		learningRate:   DefaultLearningRate,
		historyCap:     DefaultHistoryCap,
		newID:          NewSpecialistID,
		now:            time.Now,
		logger:         zap.NewNop(),
	}
}

// WithVigilance sets the minimum resonance for reusing a specialist.
func WithVigilance(v float64) Option {
	return func(o *routerOptions) { o.vigilance = v }
}

// WithMaxSpecialists bounds the registry. Zero or less disables pruning.
func WithMaxSpecialists(n int) Option {
	return func(o *routerOptions) { o.maxSpecialists = n }
}

// WithLearningRate sets the EMA rate for average quality. Values outside (0,1] are ignored.
func WithLearningRate(rate float64) Option {
	return func(o *routerOptions) {
		if rate > 0 && rate <= 1 {
			o.learningRate = rate
		}
	}
}

// WithHistoryCap sets the signature window size per specialist.
func WithHistoryCap(n int) Option {
	return func(o *routerOptions) {
		if n > 0 {
			o.historyCap = n
		}
	}
}

// WithIDGenerator replaces the specialist id generator (for tests).
func WithIDGenerator(fn func() string) Option {
	return func(o *routerOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock replaces time.Now (for tests).
func WithClock(now func() time.Time) Option {
	return func(o *routerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *routerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewSpecialistID returns a short random identifier such as "sp-1a2b3c4d".
func NewSpecialistID() string {
	return fmt.Sprintf("sp-%s", uuid.New().String()[:8])
}
