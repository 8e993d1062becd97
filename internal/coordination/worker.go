package coordination

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// Board is the part of the signal store a worker needs.
type Board interface {
	Read(taskID, reader string) ([]stigmergy.Reading, error)
	Deposit(taskID, approach string, metric float64, depositor string) (stigmergy.DepositResult, error)
}

// ContextDepositor is implemented by boards whose deposits do blocking work,
// such as a store write, that should honor the caller's context. Workers use
// it in place of Board.Deposit when available.
type ContextDepositor interface {
	DepositContext(ctx context.Context, taskID, approach string, metric float64, depositor string) (stigmergy.DepositResult, error)
}

// Executor performs one unit of work with the chosen approach and returns
// its success metric in [0,1].
type Executor interface {
	Execute(ctx context.Context, taskID, approach string) (float64, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, taskID, approach string) (float64, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, taskID, approach string) (float64, error) {
	return f(ctx, taskID, approach)
}

// Report is the result of one ExecuteAndReport cycle.
type Report struct {
	WorkerID string                  `json:"worker_id"`
	TaskID   string                  `json:"task_id"`
	Approach string                  `json:"approach"`
	Metric   float64                 `json:"metric"`
	Deposit  stigmergy.DepositResult `json:"deposit"`
}

// Option configures a Worker.
type Option func(*Worker)

// WithExploration sets the approaches tried when a task has no signals.
func WithExploration(approaches []string) Option {
	return func(w *Worker) {
		if len(approaches) > 0 {
			w.exploration = append([]string(nil), approaches...)
		}
	}
}

// WithRand sets the random source used for approach selection.
func WithRand(rng *rand.Rand) Option {
	return func(w *Worker) {
		if rng != nil {
			w.rng = rng
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// Worker is one identity coordinating through a board. It is safe for
// concurrent use.
type Worker struct {
	id          string
	board       Board
	exploration []string
	logger      *zap.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewWorker binds id to board.
func NewWorker(id string, board Board, opts ...Option) *Worker {
	w := &Worker{
		id:          id,
		board:       board,
		exploration: DefaultExploration,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("coordination").With(zap.String("worker_id", id))
	return w
}

// ID returns the worker identity used as depositor.
func (w *Worker) ID() string {
	return w.id
}

// SelectApproach reads the board for taskID and samples an approach.
func (w *Worker) SelectApproach(taskID string) string {
	readings, err := w.board.Read(taskID, w.id)
	if err != nil && !errors.Is(err, stigmergy.ErrTaskNotFound) {
		w.logger.Warn("read signals failed, exploring", zap.String("task_id", taskID), zap.Error(err))
		readings = nil
	}

	w.mu.Lock()
	approach := SelectWeighted(readings, w.exploration, w.rng)
	w.mu.Unlock()

	w.logger.Debug("selected approach",
		zap.String("task_id", taskID),
		zap.String("approach", approach),
		zap.Int("signals", len(readings)))
	return approach
}

// ExecuteAndReport selects an approach, runs exec with it, and deposits the
// resulting metric under this worker's identity. If exec fails nothing is
// deposited.
func (w *Worker) ExecuteAndReport(ctx context.Context, taskID string, exec Executor) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	approach := w.SelectApproach(taskID)
	report := Report{WorkerID: w.id, TaskID: taskID, Approach: approach}

	metric, err := exec.Execute(ctx, taskID, approach)
	if err != nil {
		return report, fmt.Errorf("execute %s with %s: %w", taskID, approach, err)
	}
	report.Metric = metric

	res, err := w.deposit(ctx, taskID, approach, metric)
	if err != nil {
		return report, fmt.Errorf("report %s: %w", taskID, err)
	}
	report.Deposit = res

	w.logger.Debug("reported outcome",
		zap.String("task_id", taskID),
		zap.String("approach", approach),
		zap.Float64("metric", metric),
		zap.String("action", string(res.Action)))
	return report, nil
}

func (w *Worker) deposit(ctx context.Context, taskID, approach string, metric float64) (stigmergy.DepositResult, error) {
	if cd, ok := w.board.(ContextDepositor); ok {
		return cd.DepositContext(ctx, taskID, approach, metric, w.id)
	}
	return w.board.Deposit(taskID, approach, metric, w.id)
}
