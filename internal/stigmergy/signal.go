// Package stigmergy implements a shared board of decaying signals that lets
// independent workers coordinate on which approach to take for a task
// without messaging each other.
//
// Every (task, approach) pair holds one Signal. Its stored strength only
// ever becomes visible through an exponential decay of its age, so an
// abandoned task fades away on its own. Redeposits either amplify or
// attenuate the existing signal depending on who deposits and how well
// they did.
package stigmergy

import (
	"math"
	"time"
)

// MaxStrength caps any stored signal strength.
const MaxStrength = 100.0

// Signal is one approach's trace on a task.
type Signal struct {
	TaskID   string `json:"task_id" yaml:"task_id"`
	Approach string `json:"approach" yaml:"approach"`
	// Strength is the raw strength at DepositedAt, in [0, MaxStrength].
	Strength    float64   `json:"strength" yaml:"strength"`
	DepositedAt time.Time `json:"deposited_at" yaml:"deposited_at"`
	// DepositedBy is the worker that first laid the signal.
	DepositedBy string `json:"deposited_by" yaml:"deposited_by"`
	// SuccessMetric is an EMA of the metrics reported for this approach.
	SuccessMetric float64 `json:"success_metric" yaml:"success_metric"`
	// Deposits counts every deposit applied to this signal.
	Deposits int `json:"deposits" yaml:"deposits"`
}

// Age returns the time elapsed since the last deposit. Never negative.
func (s *Signal) Age(now time.Time) time.Duration {
	if age := now.Sub(s.DepositedAt); age > 0 {
		return age
	}
	return 0
}

// Decayed returns the strength after exponential decay with time constant rate.
func (s *Signal) Decayed(now time.Time, rate time.Duration) float64 {
	if rate <= 0 {
		return s.Strength
	}
	return s.Strength * math.Exp(-s.Age(now).Seconds()/rate.Seconds())
}

// Reading is a decay-adjusted view of a Signal returned to readers.
type Reading struct {
	Approach      string        `json:"approach"`
	Strength      float64       `json:"strength"`
	SuccessMetric float64       `json:"success_metric"`
	Age           time.Duration `json:"age"`
	DepositedBy   string        `json:"deposited_by"`
	// FromSelf is true when the reader laid this signal.
	FromSelf bool `json:"from_self"`
}

// Action describes what a deposit did to the board.
type Action string

const (
	ActionCreated    Action = "created"
	ActionAmplified  Action = "amplified"
	ActionAttenuated Action = "attenuated"
)

// DepositResult reports the effect of one deposit.
type DepositResult struct {
	TaskID   string `json:"task_id"`
	Approach string `json:"approach"`
	Action   Action `json:"action"`
	// Previous is the decayed strength before the deposit, 0 when created.
	Previous      float64 `json:"previous"`
	Strength      float64 `json:"strength"`
	SuccessMetric float64 `json:"success_metric"`
}
