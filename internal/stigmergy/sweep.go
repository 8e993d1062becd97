package stigmergy

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Examined     int `json:"examined"`
	Removed      int `json:"removed"`
	TasksRemoved int `json:"tasks_removed"`
	Remaining    int `json:"remaining"`
}

// Sweep deletes every signal whose decayed strength is at or below the floor,
// and drops tasks left with no signals. Shards are locked one at a time.
func (b *Board) Sweep() SweepResult {
	var res SweepResult
	for _, s := range b.shards {
		s.mu.Lock()
		now := b.now()
		for taskID, set := range s.tasks {
			for approach, sig := range set {
				res.Examined++
				if !b.visible(sig.Decayed(now, b.decayRate)) {
					delete(set, approach)
					res.Removed++
				}
			}
			if len(set) == 0 {
				delete(s.tasks, taskID)
				res.TasksRemoved++
			}
		}
		s.mu.Unlock()
	}
	res.Remaining = res.Examined - res.Removed

	if res.Removed > 0 {
		b.logger.Info("swept signals",
			zap.Int("removed", res.Removed),
			zap.Int("tasks_removed", res.TasksRemoved),
			zap.Int("remaining", res.Remaining))
	}
	return res
}

// RunSweeper calls Sweep every interval until ctx is done. onSweep, if not
// nil, receives each result. It blocks; run it in its own goroutine.
func (b *Board) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(SweepResult)) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := b.Sweep()
			if onSweep != nil {
				onSweep(res)
			}
		}
	}
}

// TaskState is the decay-adjusted view of one task's signals.
type TaskState struct {
	TaskID  string    `json:"task_id"`
	Signals []Reading `json:"signals"`
}

// BoardState is a point-in-time summary of the board.
type BoardState struct {
	TotalTasks   int         `json:"total_tasks"`
	TotalSignals int         `json:"total_signals"`
	Tasks        []TaskState `json:"tasks"`
}

// State returns every stored signal with its decayed strength, including
// ones below the floor, grouped by task in id order.
func (b *Board) State() BoardState {
	var st BoardState
	for _, s := range b.shards {
		s.mu.RLock()
		now := b.now()
		for taskID, set := range s.tasks {
			ts := TaskState{TaskID: taskID, Signals: make([]Reading, 0, len(set))}
			for _, sig := range set {
				ts.Signals = append(ts.Signals, Reading{
					Approach:      sig.Approach,
					Strength:      sig.Decayed(now, b.decayRate),
					SuccessMetric: sig.SuccessMetric,
					Age:           sig.Age(now),
					DepositedBy:   sig.DepositedBy,
				})
			}
			sortReadings(ts.Signals)
			st.TotalSignals += len(set)
			st.Tasks = append(st.Tasks, ts)
		}
		s.mu.RUnlock()
	}
	st.TotalTasks = len(st.Tasks)
	sort.Slice(st.Tasks, func(i, j int) bool { return st.Tasks[i].TaskID < st.Tasks[j].TaskID })
	return st
}
