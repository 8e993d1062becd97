package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/swarm/internal/persist"
	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// shutdownFlushTimeout bounds the final signal snapshot written when Run stops.
const shutdownFlushTimeout = 5 * time.Second

// Coordinator owns the router, the board, and their persistence.
// It is safe for concurrent use.
type Coordinator struct {
	router        *resonance.Router
	board         *stigmergy.Board
	store         persist.Store
	sweepInterval time.Duration
	exploration   []string
	logger        *zap.Logger

	// profileMu orders registry changes with their store writes so a
	// profile saved by one route cannot land after another route pruned it.
	profileMu sync.Mutex

	persistence *persistTracker
	workers     *workerRegistry
}

// New creates a Coordinator. It panics if a required field is nil.
func New(req RequiredConfig, opts ...Option) *Coordinator {
	if req.Router == nil || req.Board == nil {
		panic("orchestrator: RequiredConfig needs Router and Board")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("orchestrator")
	return &Coordinator{
		router:        req.Router,
		board:         req.Board,
		store:         o.store,
		sweepInterval: o.sweepInterval,
		exploration:   o.exploration,
		logger:        logger,
		persistence:   newPersistTracker(logger),
		workers:       newWorkerRegistry(),
	}
}

// Router returns the specialist router.
func (c *Coordinator) Router() *resonance.Router {
	return c.router
}

// Board returns the signal board.
func (c *Coordinator) Board() *stigmergy.Board {
	return c.board
}

// Route routes task and saves the chosen specialist. Specialists pruned to
// make room are deleted from the store.
func (c *Coordinator) Route(ctx context.Context, task models.Task) resonance.Decision {
	c.profileMu.Lock()
	defer c.profileMu.Unlock()

	d := c.router.Route(task)

	if d.Created {
		c.logger.Info("specialist created",
			zap.String("specialist_id", d.SpecialistID),
			zap.String("task_id", task.ID),
			zap.Float64("best_resonance", d.Resonance))
	}
	if len(d.Pruned) > 0 {
		c.logger.Info("specialists pruned", zap.Strings("ids", d.Pruned))
	}

	if c.store == nil {
		return d
	}
	if p, ok := c.router.Profile(d.SpecialistID); ok {
		c.persistence.track("save profile", c.store.SaveProfile(ctx, p))
	}
	if len(d.Pruned) > 0 {
		c.persistence.track("delete profiles", c.store.DeleteProfiles(ctx, d.Pruned))
	}
	return d
}

// RecordOutcome records an outcome against specialist id and saves the
// updated profile.
func (c *Coordinator) RecordOutcome(ctx context.Context, id string, success bool, quality float64) (resonance.Profile, error) {
	c.profileMu.Lock()
	defer c.profileMu.Unlock()

	p, err := c.router.RecordOutcome(id, success, quality)
	if err != nil {
		return resonance.Profile{}, err
	}
	if c.store != nil {
		c.persistence.track("save profile", c.store.SaveProfile(ctx, p))
	}
	return p, nil
}

// Deposit lays a signal on the board and saves it.
func (c *Coordinator) Deposit(ctx context.Context, taskID, approach string, metric float64, depositor string) (stigmergy.DepositResult, error) {
	res, err := c.board.Deposit(taskID, approach, metric, depositor)
	if err != nil {
		return res, err
	}
	if c.store != nil {
		if sig, ok := c.board.Signal(taskID, approach); ok {
			c.persistence.track("save signal", c.store.SaveSignal(ctx, sig))
		}
	}
	return res, nil
}

// Apply feeds an externally reported outcome into the registry, the board,
// or both, depending on which targets it names.
func (c *Coordinator) Apply(ctx context.Context, o models.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}

	var errs []error
	if o.HasSpecialist() {
		if _, err := c.RecordOutcome(ctx, o.SpecialistID, o.Success, o.Quality); err != nil {
			errs = append(errs, fmt.Errorf("record outcome: %w", err))
		}
	}
	if o.HasSignal() {
		if _, err := c.Deposit(ctx, o.TaskID, o.Approach, o.Quality, o.DepositorID); err != nil {
			errs = append(errs, fmt.Errorf("deposit: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Sweep removes faded signals and snapshots the remaining signal table.
func (c *Coordinator) Sweep(ctx context.Context) stigmergy.SweepResult {
	res := c.board.Sweep()
	c.snapshotSignals(ctx)
	return res
}

// Run sweeps the board every sweep interval until ctx is done, then writes
// a final signal snapshot.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Debug("sweeper started", zap.Duration("interval", c.sweepInterval))
	c.board.RunSweeper(ctx, c.sweepInterval, func(stigmergy.SweepResult) {
		c.snapshotSignals(ctx)
	})

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	c.snapshotSignals(flushCtx)
	c.logger.Debug("sweeper stopped")
	return nil
}

// Load replaces the router and board contents with what the store holds.
// Stored specialists beyond the router's capacity are pruned from both.
func (c *Coordinator) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.profileMu.Lock()
	defer c.profileMu.Unlock()

	profiles, err := c.store.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	signals, err := c.store.LoadSignals(ctx)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}
	if pruned := c.router.Restore(profiles); len(pruned) > 0 {
		c.persistence.track("delete profiles", c.store.DeleteProfiles(ctx, pruned))
	}
	c.board.Restore(signals)

	c.logger.Info("state loaded",
		zap.Int("specialists", c.router.Len()),
		zap.Int("signals", len(signals)))
	return nil
}

// Flush writes every profile and the whole signal table. Unlike the
// incremental writes it returns the errors it hits.
func (c *Coordinator) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	var errs []error
	c.profileMu.Lock()
	for _, p := range c.router.Profiles() {
		if err := c.store.SaveProfile(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("save profile %s: %w", p.ID, err))
		}
	}
	c.profileMu.Unlock()
	if err := c.store.ReplaceSignals(ctx, c.board.Signals()); err != nil {
		errs = append(errs, fmt.Errorf("replace signals: %w", err))
	}
	err := errors.Join(errs...)
	c.persistence.track("flush", err)
	return err
}

// DeleteProfiles removes profiles from the store. The router is left
// untouched.
func (c *Coordinator) DeleteProfiles(ctx context.Context, ids []string) error {
	if c.store == nil || len(ids) == 0 {
		return nil
	}
	c.profileMu.Lock()
	defer c.profileMu.Unlock()
	if err := c.store.DeleteProfiles(ctx, ids); err != nil {
		return fmt.Errorf("delete profiles: %w", err)
	}
	return nil
}

// PersistFailures returns how many store writes have failed.
func (c *Coordinator) PersistFailures() int64 {
	return c.persistence.failures()
}

// LastPersistError returns the most recent store error, or nil.
func (c *Coordinator) LastPersistError() error {
	return c.persistence.last()
}

// Close closes the store, if any.
func (c *Coordinator) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Coordinator) snapshotSignals(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.persistence.track("snapshot signals", c.store.ReplaceSignals(ctx, c.board.Signals()))
}
