// Package coordination binds a worker identity to a stigmergic board for
// select, execute, and report cycles.
package coordination

import (
	"math/rand/v2"

	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// DefaultExploration is the approach set tried when a task has no signals.
var DefaultExploration = []string{"approach_A", "approach_B", "approach_C"}

// SelectWeighted picks an approach from readings with probability
// proportional to strength. With no usable readings it picks uniformly from
// exploration, falling back to DefaultExploration when that is empty.
func SelectWeighted(readings []stigmergy.Reading, exploration []string, rng *rand.Rand) string {
	var total float64
	for _, r := range readings {
		if r.Strength > 0 {
			total += r.Strength
		}
	}
	if total <= 0 {
		if len(exploration) == 0 {
			exploration = DefaultExploration
		}
		return exploration[rng.IntN(len(exploration))]
	}

	target := rng.Float64() * total
	var cumulative float64
	for _, r := range readings {
		if r.Strength <= 0 {
			continue
		}
		cumulative += r.Strength
		if target < cumulative {
			return r.Approach
		}
	}
	return readings[0].Approach
}
