// package tasks implements the statistics pipeline and the built-in statistics updater.
//
// The core abstraction is PipelineEngine, which evaluates a trigger and runs checkout, update, publish and purge in order.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/services"
	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/trigger"
)

// Locker guards the working tree for the duration of a run.
type Locker interface {
	TryLock() error
	Unlock() error
}

// Checkouter fetches the repository into the working tree.
type Checkouter interface {
	Checkout(ctx context.Context, remoteURL, branch string) error
}

// Publisher commits and pushes statistics changes.
type Publisher interface {
	Publish(ctx context.Context) (*services.PublishResult, error)
}

// Purger issues CDN cache purge requests.
type Purger interface {
	Purge(ctx context.Context, paths []string) ([]services.PurgeResult, error)
}

// RunStore persists pipeline runs.
type RunStore interface {
	Create(run *models.Run) error
	Update(run *models.Run) error
}

// PipelineOpts wires the collaborators of a [PipelineEngine]. Only Evaluator, Updater and Publisher are required.
type PipelineOpts struct {
	Evaluator  *trigger.Evaluator
	Lock       Locker
	Checkout   Checkouter
	CloneURL   string
	Branch     string
	Updater    services.Updater
	Publisher  Publisher
	Purger     Purger
	PurgePaths []string
	Runs       RunStore
	Logger     *log.Logger
}

// RunResult contains everything a pipeline run did.
type RunResult struct {
	Decision trigger.Decision
	Skipped  bool
	Publish  *services.PublishResult
	Purges   []services.PurgeResult
	Run      *models.Run
}

// PipelineEngine runs the statistics pipeline for one event at a time.
type PipelineEngine struct {
	opts   PipelineOpts
	logger *log.Logger
}

// NewPipelineEngine creates a new PipelineEngine with the provided collaborators.
func NewPipelineEngine(opts PipelineOpts) *PipelineEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PipelineEngine{opts: opts, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PipelineEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run evaluates ev and, when it triggers, runs every step in order.
//
// A failing updater or publisher halts the run and is returned. Purge outcomes never fail the run.
func (e *PipelineEngine) Run(ctx context.Context, ev trigger.Event, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.opts.Evaluator == nil {
		return nil, fmt.Errorf("%w: trigger evaluator not initialized", shared.ErrServiceUnavailable)
	}
	if e.opts.Updater == nil || e.opts.Publisher == nil {
		return nil, fmt.Errorf("%w: updater and publisher are required", shared.ErrServiceUnavailable)
	}

	decision := e.opts.Evaluator.Evaluate(ev)
	result := &RunResult{Decision: decision}
	e.sendProgress(progress, evaluateUpdate(decision))

	if !decision.Run {
		result.Skipped = true
		e.logger.Info("pipeline skipped", "event", ev.Kind, "reason", decision.Reason)
		e.sendProgress(progress, doneUpdate(result))
		return result, nil
	}
	e.logger.Info("pipeline triggered", "event", ev.Kind, "reason", decision.Reason, "force", decision.ForceUpdate)

	if e.opts.Lock != nil {
		if err := e.opts.Lock.TryLock(); err != nil {
			return result, err
		}
		defer func() {
			if err := e.opts.Lock.Unlock(); err != nil {
				e.logger.Warn("failed to release lock", "error", err)
			}
		}()
		e.sendProgress(progress, lockUpdate())
	}

	run := models.NewRun(string(ev.Kind), decision.ForceUpdate)
	run.Start()
	result.Run = run
	e.createRun(run)

	err := e.steps(ctx, decision, result, progress)
	if err != nil {
		run.Finish(models.RunFailed, err)
		e.logger.Error("pipeline failed", "error", err)
	} else {
		run.Finish(models.RunSucceeded, nil)
		e.logger.Info("pipeline finished", "committed", run.Committed, "duration", run.Duration())
	}
	e.updateRun(run)
	e.sendProgress(progress, doneUpdate(result))
	return result, err
}

func (e *PipelineEngine) steps(ctx context.Context, decision trigger.Decision, result *RunResult, progress chan<- ProgressUpdate) error {
	run := result.Run

	if e.opts.Checkout != nil {
		e.sendProgress(progress, checkoutUpdate(e.opts.Branch))
		if err := e.opts.Checkout.Checkout(ctx, e.opts.CloneURL, e.opts.Branch); err != nil {
			return err
		}
	}

	e.sendProgress(progress, updaterUpdate(decision.ForceUpdate))
	if err := e.opts.Updater.Update(WithRunID(ctx, run.ID()), decision.ForceUpdate); err != nil {
		if !errors.Is(err, shared.ErrScriptFailed) {
			err = fmt.Errorf("%w: %v", shared.ErrScriptFailed, err)
		}
		return err
	}

	e.sendProgress(progress, publishUpdate())
	pub, err := e.opts.Publisher.Publish(ctx)
	result.Publish = pub
	if pub != nil {
		run.Committed = pub.Committed
		run.CommitMessage = pub.Message
	}
	if err != nil {
		return err
	}
	e.sendProgress(progress, publishedUpdate(pub))

	if e.opts.Purger == nil || len(e.opts.PurgePaths) == 0 {
		return nil
	}
	e.sendProgress(progress, waitUpdate())
	purges, err := e.opts.Purger.Purge(ctx, e.opts.PurgePaths)
	if err != nil {
		e.logger.Warn("cache purge skipped", "error", err)
		return nil
	}
	result.Purges = purges
	run.PurgeOK, run.PurgeFailed = services.CountPurges(purges)
	e.sendProgress(progress, purgeUpdate(purges))
	return nil
}

func (e *PipelineEngine) createRun(run *models.Run) {
	if e.opts.Runs == nil {
		return
	}
	if err := e.opts.Runs.Create(run); err != nil {
		e.logger.Warn("failed to record run", "error", err)
	}
}

func (e *PipelineEngine) updateRun(run *models.Run) {
	if e.opts.Runs == nil || run.ID() == "" {
		return
	}
	if err := e.opts.Runs.Update(run); err != nil {
		e.logger.Warn("failed to update run record", "error", err)
	}
}

type runIDKey struct{}

// WithRunID attaches the current run ID for updaters that record snapshots.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run ID attached by [WithRunID], if any.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
