package orchestrator

import (
	"context"
	"sync"

	"github.com/ShayCichocki/swarm/internal/coordination"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// workerRegistry holds the workers created by a Coordinator, keyed by id.
type workerRegistry struct {
	workers map[string]*coordination.Worker
	mu      sync.RWMutex
}

func newWorkerRegistry() *workerRegistry {
	return &workerRegistry{workers: make(map[string]*coordination.Worker)}
}

// getOrCreate returns the worker registered under id, creating it with
// create if there is none.
func (r *workerRegistry) getOrCreate(id string, create func() *coordination.Worker) *coordination.Worker {
	r.mu.RLock()
	w, ok := r.workers[id]
	r.mu.RUnlock()
	if ok {
		return w
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[id]; ok {
		return w
	}
	w = create()
	r.workers[id] = w
	return w
}

// unregister removes a worker from the registry.
func (r *workerRegistry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, id)
}

func (r *workerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// Worker returns the worker with the given id, creating it on first use.
// Its deposits go through the coordinator and are persisted.
//
// opts only apply when the worker is created; later calls for the same id
// return the existing worker unchanged.
func (c *Coordinator) Worker(id string, opts ...coordination.Option) *coordination.Worker {
	return c.workers.getOrCreate(id, func() *coordination.Worker {
		base := []coordination.Option{
			coordination.WithExploration(c.exploration),
			coordination.WithLogger(c.logger),
		}
		return coordination.NewWorker(id, persistingBoard{c}, append(base, opts...)...)
	})
}

// persistingBoard routes worker deposits through the coordinator.
type persistingBoard struct {
	c *Coordinator
}

func (b persistingBoard) Read(taskID, reader string) ([]stigmergy.Reading, error) {
	return b.c.board.Read(taskID, reader)
}

func (b persistingBoard) Deposit(taskID, approach string, metric float64, depositor string) (stigmergy.DepositResult, error) {
	return b.DepositContext(context.Background(), taskID, approach, metric, depositor)
}

// DepositContext lets workers pass their cycle's context to the store write.
func (b persistingBoard) DepositContext(ctx context.Context, taskID, approach string, metric float64, depositor string) (stigmergy.DepositResult, error) {
	return b.c.Deposit(ctx, taskID, approach, metric, depositor)
}
