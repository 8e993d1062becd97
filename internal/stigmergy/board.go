package stigmergy

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTaskNotFound is returned when reading a task with no signals.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidDeposit is returned for deposits missing a task id or approach.
	ErrInvalidDeposit = errors.New("invalid deposit")
)

// shard guards the signal sets of the tasks that hash to it.
type shard struct {
	mu    sync.RWMutex
	tasks map[string]map[string]*Signal
}

// Board is the shared signal store. It is safe for concurrent use; locks are
// sharded by task id so unrelated tasks never contend.
type Board struct {
	shards        []*shard
	decayRate     time.Duration
	amplification float64
	attenuation   float64
	floor         float64
	now           func() time.Time
	logger        *zap.Logger
}

// New creates an empty Board.
func New(opts ...Option) *Board {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Board{
		shards:        make([]*shard, o.shards),
		decayRate:     o.decayRate,
		amplification: o.amplification,
		attenuation:   o.attenuation,
		floor:         o.floor,
		now:           o.now,
		logger:        o.logger.Named("stigmergy"),
	}
	for i := range b.shards {
		b.shards[i] = &shard{tasks: make(map[string]map[string]*Signal)}
	}
	return b
}

// DecayRate returns the decay time constant.
func (b *Board) DecayRate() time.Duration {
	return b.decayRate
}

// Floor returns the visibility floor.
func (b *Board) Floor() float64 {
	return b.floor
}

func (b *Board) shardFor(taskID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(taskID))
	return b.shards[h.Sum32()%uint32(len(b.shards))]
}

// visible reports whether a decayed strength is above the floor.
func (b *Board) visible(strength float64) bool {
	return strength > b.floor
}

// Deposit lays or reinforces the signal for (taskID, approach). metric is
// clamped to [0,1].
//
// A redeposit amplifies the existing signal when the depositor laid it or
// the metric exceeds 0.7, and attenuates it otherwise. Either way the
// stored metric moves toward the new one and the decay clock restarts.
func (b *Board) Deposit(taskID, approach string, metric float64, depositor string) (DepositResult, error) {
	if taskID == "" || approach == "" {
		return DepositResult{}, fmt.Errorf("deposit %q/%q: %w", taskID, approach, ErrInvalidDeposit)
	}
	if math.IsNaN(metric) {
		metric = 0
	}
	metric = max(0, min(1, metric))
	initial := metric * MaxStrength

	s := b.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := b.now()
	set, ok := s.tasks[taskID]
	if !ok {
		set = make(map[string]*Signal)
		s.tasks[taskID] = set
	}

	existing, ok := set[approach]
	if !ok {
		set[approach] = &Signal{
			TaskID:        taskID,
			Approach:      approach,
			Strength:      initial,
			DepositedAt:   now,
			DepositedBy:   depositor,
			SuccessMetric: metric,
			Deposits:      1,
		}
		b.logger.Debug("signal created",
			zap.String("task_id", taskID),
			zap.String("approach", approach),
			zap.Float64("strength", initial))
		return DepositResult{
			TaskID:        taskID,
			Approach:      approach,
			Action:        ActionCreated,
			Strength:      initial,
			SuccessMetric: metric,
		}, nil
	}

	current := existing.Decayed(now, b.decayRate)
	action := ActionAttenuated
	if existing.DepositedBy == depositor || metric > amplifyThreshold {
		action = ActionAmplified
		existing.Strength = min(current+initial*b.amplification, MaxStrength)
	} else {
		existing.Strength = current * b.attenuation
	}
	existing.SuccessMetric = metricRetention*existing.SuccessMetric + (1-metricRetention)*metric
	existing.DepositedAt = now
	existing.Deposits++

	b.logger.Debug("signal "+string(action),
		zap.String("task_id", taskID),
		zap.String("approach", approach),
		zap.String("depositor", depositor),
		zap.Float64("previous", current),
		zap.Float64("strength", existing.Strength))

	return DepositResult{
		TaskID:        taskID,
		Approach:      approach,
		Action:        action,
		Previous:      current,
		Strength:      existing.Strength,
		SuccessMetric: existing.SuccessMetric,
	}, nil
}

// Read returns the visible signals for taskID, strongest first. FromSelf is
// set on signals laid by reader. A task with signals that have all decayed
// below the floor yields an empty slice; an unknown task yields
// ErrTaskNotFound.
func (b *Board) Read(taskID, reader string) ([]Reading, error) {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", taskID, ErrTaskNotFound)
	}

	now := b.now()
	out := make([]Reading, 0, len(set))
	for _, sig := range set {
		strength := sig.Decayed(now, b.decayRate)
		if !b.visible(strength) {
			continue
		}
		out = append(out, Reading{
			Approach:      sig.Approach,
			Strength:      strength,
			SuccessMetric: sig.SuccessMetric,
			Age:           sig.Age(now),
			DepositedBy:   sig.DepositedBy,
			FromSelf:      reader != "" && sig.DepositedBy == reader,
		})
	}
	sortReadings(out)
	return out, nil
}

// Strongest returns the approach with the highest visible strength.
func (b *Board) Strongest(taskID string) (string, bool) {
	readings, err := b.Read(taskID, "")
	if err != nil || len(readings) == 0 {
		return "", false
	}
	return readings[0].Approach, true
}

// Signal returns a copy of the stored signal for (taskID, approach).
func (b *Board) Signal(taskID, approach string) (Signal, bool) {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.tasks[taskID][approach]
	if !ok {
		return Signal{}, false
	}
	return *sig, true
}

// Signals returns copies of every stored signal ordered by task and approach,
// including ones below the floor that have not been swept yet.
func (b *Board) Signals() []Signal {
	var out []Signal
	for _, s := range b.shards {
		s.mu.RLock()
		for _, set := range s.tasks {
			for _, sig := range set {
				out = append(out, *sig)
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskID != out[j].TaskID {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].Approach < out[j].Approach
	})
	return out
}

// Restore replaces the board contents with signals, typically loaded from a
// store at startup. Later duplicates of a (task, approach) pair win.
func (b *Board) Restore(signals []Signal) {
	for _, s := range b.shards {
		s.mu.Lock()
		s.tasks = make(map[string]map[string]*Signal)
		s.mu.Unlock()
	}
	for i := range signals {
		sig := signals[i]
		if sig.TaskID == "" || sig.Approach == "" {
			continue
		}
		s := b.shardFor(sig.TaskID)
		s.mu.Lock()
		set, ok := s.tasks[sig.TaskID]
		if !ok {
			set = make(map[string]*Signal)
			s.tasks[sig.TaskID] = set
		}
		set[sig.Approach] = &sig
		s.mu.Unlock()
	}
}

func sortReadings(r []Reading) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].Strength != r[j].Strength {
			return r[i].Strength > r[j].Strength
		}
		return r[i].Approach < r[j].Approach
	})
}
