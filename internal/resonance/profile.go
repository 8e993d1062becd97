// Package resonance routes tasks to self-organizing specialists.
//
// Each specialist keeps a sliding window of the task signatures it has
// handled. A new task is scored against every specialist's centroid
// (cosine similarity weighted by success rate); when the best score clears
// the vigilance threshold the specialist is reused, otherwise a new one is
// created. The registry is bounded and prunes its weakest members.
package resonance

import (
	"time"

	"github.com/ShayCichocki/swarm/internal/signature"
)

// Profile is the accumulated expertise of one specialist.
type Profile struct {
	// ID is the generated registry key.
	ID string `json:"id" yaml:"id"`
	// History holds the most recent signatures, oldest first.
	History []signature.Signature `json:"history" yaml:"history"`
	// SuccessCount and FailureCount always sum to TotalExecutions().
	SuccessCount int `json:"success_count" yaml:"success_count"`
	FailureCount int `json:"failure_count" yaml:"failure_count"`
	// AverageQuality is an exponential moving average of reported quality.
	AverageQuality float64 `json:"average_quality" yaml:"average_quality"`
	// SpecializationStrength is 1 - min(2*mean feature variance, 1) over History.
	SpecializationStrength float64 `json:"specialization_strength" yaml:"specialization_strength"`
	// Revision increases on every mutation; stores use it to drop stale writes.
	Revision  uint64    `json:"revision" yaml:"revision"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TotalExecutions returns the number of recorded outcomes.
func (p *Profile) TotalExecutions() int {
	return p.SuccessCount + p.FailureCount
}

// SuccessRate returns successes over executions, 0 before any outcome.
func (p *Profile) SuccessRate() float64 {
	total := p.TotalExecutions()
	if total < 1 {
		total = 1
	}
	return float64(p.SuccessCount) / float64(total)
}

// Centroid returns the mean vector of the profile's history.
func (p *Profile) Centroid() signature.Vector {
	return signature.Centroid(signature.Vectors(p.History))
}

// Resonance scores how well vec matches this specialist.
// A profile with no history scores 0.
func (p *Profile) Resonance(vec signature.Vector) float64 {
	if len(p.History) == 0 {
		return 0
	}
	return signature.Cosine(vec, p.Centroid()) * p.SuccessRate()
}

// Score is the pruning rank: average quality weighted by success rate.
func (p *Profile) Score() float64 {
	return p.AverageQuality * p.SuccessRate()
}

// observe appends sig to the history window and refreshes derived fields.
func (p *Profile) observe(sig signature.Signature, historyCap int, now time.Time) {
	if historyCap > 0 && len(p.History) >= historyCap {
		drop := len(p.History) - historyCap + 1
		p.History = append(p.History[:0:0], p.History[drop:]...)
	}
	p.History = append(p.History, sig)
	p.refreshSpecialization()
	p.touch(now)
}

// recordOutcome applies one execution result using an EMA with the given rate.
func (p *Profile) recordOutcome(success bool, quality, rate float64, now time.Time) {
	if p.TotalExecutions() == 0 {
		p.AverageQuality = quality
	} else {
		p.AverageQuality = rate*quality + (1-rate)*p.AverageQuality
	}
	if success {
		p.SuccessCount++
	} else {
		p.FailureCount++
	}
	p.touch(now)
}

func (p *Profile) refreshSpecialization() {
	v := signature.MeanVariance(signature.Vectors(p.History))
	p.SpecializationStrength = 1 - min(2*v, 1)
}

func (p *Profile) touch(now time.Time) {
	p.Revision++
	p.UpdatedAt = now
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() Profile {
	c := *p
	c.History = make([]signature.Signature, len(p.History))
	for i, s := range p.History {
		c.History[i] = s.Clone()
	}
	return c
}
