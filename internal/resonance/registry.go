package resonance

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/swarm/internal/signature"
)

// ErrSpecialistNotFound is returned for operations on an unknown specialist id.
var ErrSpecialistNotFound = errors.New("specialist not found")

// Registry owns the specialist profiles.
// A single lock guards the whole registry because pruning scans every entry.
type Registry struct {
	// profiles maps specialist IDs to their profiles.
	profiles map[string]*Profile
	// maxSpecialists bounds the registry size; 0 disables pruning.
	maxSpecialists int
	// historyCap bounds each profile's signature window.
	historyCap int
	// mu protects profiles.
	mu sync.RWMutex
}

func newRegistry(maxSpecialists, historyCap int) *Registry {
	return &Registry{
		profiles:       make(map[string]*Profile),
		maxSpecialists: maxSpecialists,
		historyCap:     historyCap,
	}
}

// Get returns a copy of the profile for id.
func (r *Registry) Get(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return p.Clone(), true
}

// List returns copies of all profiles ordered by ID.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.profiles))
	for _, id := range r.sortedIDsLocked() {
		out = append(out, r.profiles[id].Clone())
	}
	return out
}

// Len returns the number of specialists.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Capacity returns the configured maximum number of specialists.
func (r *Registry) Capacity() int {
	return r.maxSpecialists
}

// Restore replaces the registry contents with the given profiles,
// typically loaded from a store at startup. Histories longer than the
// window are trimmed to their newest entries. If the profiles exceed the
// capacity the weakest are pruned and their ids returned.
func (r *Registry) Restore(profiles []Profile) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := profiles[i].Clone()
		if r.historyCap > 0 && len(p.History) > r.historyCap {
			p.History = p.History[len(p.History)-r.historyCap:]
		}
		r.profiles[p.ID] = &p
	}
	return r.pruneLocked("")
}

// sortedIDsLocked returns profile ids in lexical order so that scans and
// tie-breaks are deterministic. Callers hold mu.
func (r *Registry) sortedIDsLocked() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// bestMatchLocked returns the highest-resonance profile for vec, or "" for
// an empty registry. Ties go to the lexically smallest id. Callers hold mu.
func (r *Registry) bestMatchLocked(vec signature.Vector) (string, float64) {
	var bestID string
	var best float64
	for _, id := range r.sortedIDsLocked() {
		if score := r.profiles[id].Resonance(vec); bestID == "" || score > best {
			best = score
			bestID = id
		}
	}
	return bestID, best
}

// createLocked inserts a new profile seeded with sig. Callers hold mu.
func (r *Registry) createLocked(id string, sig signature.Signature, now time.Time) *Profile {
	p := &Profile{
		ID:        id,
		CreatedAt: now,
	}
	p.observe(sig, r.historyCap, now)
	r.profiles[id] = p
	return p
}

// pruneLocked drops the lowest-scoring profiles until the registry is back
// at capacity. keep is never removed. Callers hold mu.
func (r *Registry) pruneLocked(keep string) []string {
	if r.maxSpecialists <= 0 || len(r.profiles) <= r.maxSpecialists {
		return nil
	}

	candidates := make([]*Profile, 0, len(r.profiles))
	for id, p := range r.profiles {
		if id != keep {
			candidates = append(candidates, p)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := a.Score(), b.Score(); sa != sb {
			return sa < sb
		}
		if ta, tb := a.TotalExecutions(), b.TotalExecutions(); ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	})

	excess := len(r.profiles) - r.maxSpecialists
	pruned := make([]string, 0, excess)
	for i := 0; i < excess && i < len(candidates); i++ {
		delete(r.profiles, candidates[i].ID)
		pruned = append(pruned, candidates[i].ID)
	}
	return pruned
}
