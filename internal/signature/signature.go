// Package signature turns task records into fixed-length feature vectors
// so that tasks and specialists can be compared numerically.
package signature

import (
	"math"
	"sort"
	"strings"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// Neutral values used when a task record leaves a field empty.
const (
	DefaultDomain            = "general"
	DefaultInputType         = "text"
	DefaultOutputType        = "text"
	DefaultComplexity        = 0.5
	DefaultEstimatedDuration = 1.0

	// DurationScale maps estimated hours onto [0,1]; anything at or above it saturates.
	DurationScale = 10.0
)

// Signature is the classification view of a task.
// It is derived only from the task record and never mutated afterwards.
type Signature struct {
	Domain            string   `json:"domain" yaml:"domain"`
	Complexity        float64  `json:"complexity" yaml:"complexity"`
	InputType         string   `json:"input_type" yaml:"input_type"`
	OutputType        string   `json:"output_type" yaml:"output_type"`
	Keywords          []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	EstimatedDuration float64  `json:"estimated_duration" yaml:"estimated_duration"`
}

// Extract builds a Signature from a task record.
// It never fails: missing or out-of-range fields are replaced by the
// neutral defaults above.
func Extract(task models.Task) Signature {
	sig := Signature{
		Domain:            orDefault(task.Domain, DefaultDomain),
		Complexity:        DefaultComplexity,
		InputType:         orDefault(task.InputType, DefaultInputType),
		OutputType:        orDefault(task.OutputType, DefaultOutputType),
		Keywords:          normalizeKeywords(task.Keywords),
		EstimatedDuration: DefaultEstimatedDuration,
	}
	if task.Complexity != nil && !math.IsNaN(*task.Complexity) {
		sig.Complexity = clamp01(*task.Complexity)
	}
	if task.EstimatedDuration != nil && !math.IsNaN(*task.EstimatedDuration) && *task.EstimatedDuration >= 0 {
		sig.EstimatedDuration = *task.EstimatedDuration
	}
	return sig
}

// Vector converts the signature to its fixed-order feature vector.
func (s Signature) Vector() Vector {
	return Vector{
		HashUnit(s.Domain),
		clamp01(s.Complexity),
		HashUnit(s.InputType),
		HashUnit(s.OutputType),
		keywordScalar(s.Keywords),
		clamp01(s.EstimatedDuration / DurationScale),
	}
}

// Clone returns a copy that shares no memory with s.
func (s Signature) Clone() Signature {
	c := s
	if s.Keywords != nil {
		c.Keywords = append([]string(nil), s.Keywords...)
	}
	return c
}

func keywordScalar(keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	var sum float64
	for _, k := range keywords {
		sum += HashUnit(k)
	}
	return sum / float64(len(keywords))
}

// normalizeKeywords lower-cases, trims, de-duplicates and sorts.
func normalizeKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
