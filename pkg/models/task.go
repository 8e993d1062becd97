package models

import (
	"errors"
	"fmt"
)

// Task is the record a caller submits for routing.
// Classification fields may be left empty; the signature extractor
// substitutes neutral defaults for anything missing.
type Task struct {
	// ID is the caller's identifier for the task, used as the board key.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Description is free text. It is logged but never interpreted.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Domain is the broad subject area (research, writing, ...).
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
	// Complexity is expected in [0,1]. Nil means unknown.
	Complexity *float64 `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	// InputType describes what the worker receives.
	InputType string `json:"input_type,omitempty" yaml:"input_type,omitempty"`
	// OutputType describes what the worker produces.
	OutputType string `json:"output_type,omitempty" yaml:"output_type,omitempty"`
	// Keywords is treated as a set.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	// EstimatedDuration is in hours. Nil means unknown.
	EstimatedDuration *float64 `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
}

// Float returns a pointer to v, for populating optional Task fields.
func Float(v float64) *float64 {
	return &v
}

// ErrInvalidOutcome is returned by Outcome.Validate.
var ErrInvalidOutcome = errors.New("invalid outcome")

// Outcome reports a completed unit of work.
// It can target a specialist (success/quality feed the registry),
// a board signal (task id + approach feed the stigmergic board), or both.
type Outcome struct {
	SpecialistID string  `json:"specialist_id,omitempty" yaml:"specialist_id,omitempty"`
	TaskID       string  `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Approach     string  `json:"approach,omitempty" yaml:"approach,omitempty"`
	DepositorID  string  `json:"depositor_id,omitempty" yaml:"depositor_id,omitempty"`
	Success      bool    `json:"success" yaml:"success"`
	Quality      float64 `json:"quality" yaml:"quality"`
}

// HasSpecialist reports whether the outcome should be recorded against a specialist.
func (o Outcome) HasSpecialist() bool {
	return o.SpecialistID != ""
}

// HasSignal reports whether the outcome should be deposited on the board.
func (o Outcome) HasSignal() bool {
	return o.TaskID != "" && o.Approach != ""
}

// Validate checks that the outcome has a target and a quality in [0,1].
func (o Outcome) Validate() error {
	if !o.HasSpecialist() && !o.HasSignal() {
		return fmt.Errorf("%w: needs specialist_id or task_id and approach", ErrInvalidOutcome)
	}
	if o.Quality < 0 || o.Quality > 1 || o.Quality != o.Quality {
		return fmt.Errorf("%w: quality %v outside [0,1]", ErrInvalidOutcome, o.Quality)
	}
	if o.HasSignal() && o.DepositorID == "" {
		return fmt.Errorf("%w: deposit for task %q has no depositor_id", ErrInvalidOutcome, o.TaskID)
	}
	return nil
}
