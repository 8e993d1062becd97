package resonance

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/swarm/internal/signature"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// Decision is the result of routing one task.
type Decision struct {
	// SpecialistID is the specialist that should handle the task.
	SpecialistID string `json:"specialist_id"`
	// Created is true when no existing specialist cleared the vigilance threshold.
	Created bool `json:"created"`
	// Resonance is the best score seen, whether or not it was reused.
	Resonance float64 `json:"resonance"`
	// Pruned lists specialists removed to make room for a new one.
	Pruned []string `json:"pruned,omitempty"`
}

// Router matches tasks to specialists and records their outcomes.
// It is safe for concurrent use.
type Router struct {
	registry     *Registry
	vigilance    float64
	learningRate float64
	newID        func() string
	now          func() time.Time
	logger       *zap.Logger
}

// New creates a Router with an empty registry.
func New(opts ...Option) *Router {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Router{
		registry:     newRegistry(o.maxSpecialists, o.historyCap),
		vigilance:    o.vigilance,
		learningRate: o.learningRate,
		newID:        o.newID,
		now:          o.now,
		logger:       o.logger.Named("resonance"),
	}
}

// Registry returns the router's specialist registry.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Vigilance returns the configured reuse threshold.
func (r *Router) Vigilance() float64 {
	return r.vigilance
}

// Route picks the specialist for task, creating one if nothing resonates
// strongly enough. Routing never fails.
func (r *Router) Route(task models.Task) Decision {
	sig := signature.Extract(task)
	vec := sig.Vector()

	reg := r.registry
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := r.now()
	bestID, best := reg.bestMatchLocked(vec)

	if bestID != "" && best >= r.vigilance {
		reg.profiles[bestID].observe(sig, reg.historyCap, now)
		r.logger.Debug("reusing specialist",
			zap.String("specialist_id", bestID),
			zap.Float64("resonance", best),
			zap.String("task_id", task.ID))
		return Decision{SpecialistID: bestID, Resonance: best}
	}

	id := r.uniqueIDLocked()
	reg.createLocked(id, sig, now)
	pruned := reg.pruneLocked(id)

	r.logger.Info("created specialist",
		zap.String("specialist_id", id),
		zap.Float64("best_resonance", best),
		zap.String("domain", sig.Domain),
		zap.String("task_id", task.ID))
	for _, p := range pruned {
		r.logger.Info("pruned specialist", zap.String("specialist_id", p))
	}

	return Decision{SpecialistID: id, Created: true, Resonance: best, Pruned: pruned}
}

// RecordOutcome applies one execution result to a specialist and returns
// the updated profile. Quality is clamped to [0,1].
func (r *Router) RecordOutcome(id string, success bool, quality float64) (Profile, error) {
	if math.IsNaN(quality) {
		quality = 0
	}
	quality = max(0, min(1, quality))

	reg := r.registry
	reg.mu.Lock()
	defer reg.mu.Unlock()

	p, ok := reg.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("record outcome for %s: %w", id, ErrSpecialistNotFound)
	}
	p.recordOutcome(success, quality, r.learningRate, r.now())

	r.logger.Debug("recorded outcome",
		zap.String("specialist_id", id),
		zap.Bool("success", success),
		zap.Float64("quality", quality),
		zap.Float64("average_quality", p.AverageQuality))

	return p.Clone(), nil
}

// Profile returns a copy of the profile for id.
func (r *Router) Profile(id string) (Profile, bool) {
	return r.registry.Get(id)
}

// Profiles returns copies of all profiles ordered by ID.
func (r *Router) Profiles() []Profile {
	return r.registry.List()
}

// Len returns the number of specialists.
func (r *Router) Len() int {
	return r.registry.Len()
}

// Restore replaces the registry contents and returns the ids pruned to
// bring it back within capacity.
func (r *Router) Restore(profiles []Profile) []string {
	pruned := r.registry.Restore(profiles)
	for _, id := range pruned {
		r.logger.Info("pruned restored specialist", zap.String("specialist_id", id))
	}
	return pruned
}

// uniqueIDLocked draws an id and suffixes it on collision.
func (r *Router) uniqueIDLocked() string {
	base := r.newID()
	id := base
	for n := 1; ; n++ {
		if _, taken := r.registry.profiles[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}
