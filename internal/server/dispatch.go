package server

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/tasks"
	"github.com/desertthunder/plstat/internal/trigger"
)

// PipelineRunner runs the pipeline for one event.
type PipelineRunner interface {
	Run(ctx context.Context, ev trigger.Event, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error)
}

// Dispatcher runs at most one pipeline in the background.
type Dispatcher struct {
	ctx    context.Context
	runner PipelineRunner
	logger *log.Logger

	busy atomic.Bool
	wg   sync.WaitGroup

	mu      sync.Mutex
	last    *tasks.RunResult
	lastErr error
}

// NewDispatcher creates a dispatcher whose runs inherit ctx.
func NewDispatcher(ctx context.Context, runner PipelineRunner, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Dispatcher{ctx: ctx, runner: runner, logger: logger}
}

// Start launches a run for ev. It returns [shared.ErrLocked] while another run is in progress.
func (d *Dispatcher) Start(ev trigger.Event) error {
	if !d.busy.CompareAndSwap(false, true) {
		return shared.ErrLocked
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.busy.Store(false)

		result, err := d.runner.Run(d.ctx, ev, nil)
		if err != nil {
			d.logger.Error("background run failed", "event", ev.Kind, "error", err)
		}

		d.mu.Lock()
		d.last, d.lastErr = result, err
		d.mu.Unlock()
	}()
	return nil
}

// Running reports whether a run is in progress.
func (d *Dispatcher) Running() bool { return d.busy.Load() }

// Last returns the outcome of the most recent finished run.
func (d *Dispatcher) Last() (*tasks.RunResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.lastErr
}

// Wait blocks until the current run, if any, finishes.
func (d *Dispatcher) Wait() { d.wg.Wait() }
