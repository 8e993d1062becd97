package stigmergy

import (
	"time"

	"go.uber.org/zap"
)

// Defaults for Board construction.
const (
	DefaultDecayRate     = time.Hour
	DefaultAmplification = 1.5
	DefaultAttenuation   = 0.7
	DefaultFloor         = 1.0
	DefaultShards        = 32
	DefaultSweepInterval = 10 * time.Minute

	// amplifyThreshold is the metric above which a foreign deposit still amplifies.
	amplifyThreshold = 0.7
	// metricRetention weights the old success metric on redeposit.
	metricRetention = 0.7
)

// Option configures a Board.
type Option func(*boardOptions)

type boardOptions struct {
	decayRate     time.Duration
	amplification float64
	attenuation   float64
	floor         float64
	shards        int
	now           func() time.Time
	logger        *zap.Logger
}

func defaultOptions() boardOptions {
	return boardOptions{
		decayRate:     DefaultDecayRate,
		amplification: DefaultAmplification,
		attenuation:   DefaultAttenuation,
		floor:         DefaultFloor,
		shards:        DefaultShards,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
}

// WithDecayRate sets the decay time constant. Non-positive values are ignored.
func WithDecayRate(d time.Duration) Option {
	return func(o *boardOptions) {
		if d > 0 {
			o.decayRate = d
		}
	}
}

// WithAmplification sets the reinforcement multiplier.
func WithAmplification(f float64) Option {
	return func(o *boardOptions) {
		if f >= 0 {
			o.amplification = f
		}
	}
}

// WithAttenuation sets the suppression multiplier, in [0,1].
func WithAttenuation(f float64) Option {
	return func(o *boardOptions) {
		if f >= 0 && f <= 1 {
			o.attenuation = f
		}
	}
}

// WithFloor sets the strength at or below which signals are invisible and swept.
func WithFloor(f float64) Option {
	return func(o *boardOptions) {
		if f >= 0 {
			o.floor = f
		}
	}
}

// WithShards sets the number of lock shards.
func WithShards(n int) Option {
	return func(o *boardOptions) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithClock replaces time.Now (for tests).
func WithClock(now func() time.Time) Option {
	return func(o *boardOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *boardOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
