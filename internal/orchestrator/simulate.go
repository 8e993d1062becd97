package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/swarm/internal/coordination"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// Simulation defaults, matching a worker that usually does acceptable work.
const (
	DefaultMinQuality       = 0.5
	DefaultMaxQuality       = 0.95
	DefaultSuccessThreshold = 0.7
)

// SimulationConfig describes a simulated swarm run against one task.
type SimulationConfig struct {
	// Task is routed every cycle; Task.ID is the board key and is required.
	Task models.Task
	// Workers run concurrently; each runs Cycles cycles.
	Workers int
	Cycles  int
	// MinQuality and MaxQuality bound the uniform metric drawn by the
	// default executor.
	MinQuality float64
	MaxQuality float64
	// SuccessThreshold is the metric at or above which an outcome counts as
	// a success for the specialist.
	SuccessThreshold float64
	// Seed makes approach selection and metrics reproducible. 0 seeds randomly.
	Seed uint64
	// Executor replaces the default random-metric executor.
	Executor coordination.Executor
}

// CycleResult is one worker's cycle.
type CycleResult struct {
	Cycle        int    `json:"cycle"`
	SpecialistID string `json:"specialist_id"`
	coordination.Report
}

// SimulationResult summarizes a run.
type SimulationResult struct {
	TaskID         string              `json:"task_id"`
	Cycles         []CycleResult       `json:"cycles"`
	ApproachCounts map[string]int      `json:"approach_counts"`
	Final          []stigmergy.Reading `json:"final"`
	Specialists    int                 `json:"specialists"`
}

func (cfg *SimulationConfig) normalize() error {
	if cfg.Task.ID == "" {
		return errors.New("simulation task needs an id")
	}
	if cfg.Workers <= 0 || cfg.Cycles <= 0 {
		return fmt.Errorf("workers and cycles must be positive, got %d and %d", cfg.Workers, cfg.Cycles)
	}
	if cfg.MinQuality == 0 && cfg.MaxQuality == 0 {
		cfg.MinQuality, cfg.MaxQuality = DefaultMinQuality, DefaultMaxQuality
	}
	if cfg.MinQuality < 0 || cfg.MaxQuality > 1 || cfg.MinQuality > cfg.MaxQuality {
		return fmt.Errorf("quality range [%v, %v] must lie within [0, 1]", cfg.MinQuality, cfg.MaxQuality)
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = DefaultSuccessThreshold
	}
	return nil
}

// Simulate runs cfg.Workers workers against cfg.Task for cfg.Cycles cycles
// each. Every cycle routes the task, lets the worker pick an approach from
// the board and report its metric, and records the metric against the
// chosen specialist. The first executor error stops the run.
func (c *Coordinator) Simulate(ctx context.Context, cfg SimulationConfig) (SimulationResult, error) {
	if err := cfg.normalize(); err != nil {
		return SimulationResult{}, err
	}

	var (
		mu      sync.Mutex
		results []CycleResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Workers {
		id := "agent-" + uuid.New().String()[:8]
		workerRand, metricRand := c.simulationRands(cfg.Seed, uint64(i))
		worker := c.Worker(id, coordination.WithRand(workerRand))

		exec := cfg.Executor
		if exec == nil {
			exec = uniformExecutor(metricRand, cfg.MinQuality, cfg.MaxQuality)
		}

		g.Go(func() error {
			defer c.workers.unregister(id)
			for cycle := 1; cycle <= cfg.Cycles; cycle++ {
				d := c.Route(gctx, cfg.Task)
				report, err := worker.ExecuteAndReport(gctx, cfg.Task.ID, exec)
				if err != nil {
					return fmt.Errorf("worker %s cycle %d: %w", id, cycle, err)
				}
				if _, err := c.RecordOutcome(gctx, d.SpecialistID, report.Metric >= cfg.SuccessThreshold, report.Metric); err != nil {
					return fmt.Errorf("worker %s cycle %d: %w", id, cycle, err)
				}

				mu.Lock()
				results = append(results, CycleResult{Cycle: cycle, SpecialistID: d.SpecialistID, Report: report})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SimulationResult{}, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Cycle != results[j].Cycle {
			return results[i].Cycle < results[j].Cycle
		}
		return results[i].WorkerID < results[j].WorkerID
	})
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Approach]++
	}
	final, err := c.board.Read(cfg.Task.ID, "")
	if err != nil && !errors.Is(err, stigmergy.ErrTaskNotFound) {
		return SimulationResult{}, err
	}

	c.logger.Info("simulation finished",
		zap.String("task_id", cfg.Task.ID),
		zap.Int("workers", cfg.Workers),
		zap.Int("cycles", cfg.Cycles),
		zap.Any("approach_counts", counts))

	return SimulationResult{
		TaskID:         cfg.Task.ID,
		Cycles:         results,
		ApproachCounts: counts,
		Final:          final,
		Specialists:    c.router.Len(),
	}, nil
}

// simulationRands returns independent generators for approach selection
// and metric draws of worker i.
func (c *Coordinator) simulationRands(seed, i uint64) (*rand.Rand, *rand.Rand) {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, 2*i)), rand.New(rand.NewPCG(seed, 2*i+1))
}

// uniformExecutor draws each metric uniformly from [lo, hi]. The returned
// executor is used by a single worker goroutine.
func uniformExecutor(rng *rand.Rand, lo, hi float64) coordination.Executor {
	return coordination.ExecutorFunc(func(ctx context.Context, _, _ string) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return lo + rng.Float64()*(hi-lo), nil
	})
}
