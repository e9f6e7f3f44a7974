package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/services"
	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/tasks"
	"github.com/desertthunder/plstat/internal/trigger"
)

// runReport is the JSON form of a pipeline result.
type runReport struct {
	Run           bool          `json:"run"`
	Reason        string        `json:"reason"`
	ForceUpdate   bool          `json:"force_update"`
	Matched       []string      `json:"matched,omitempty"`
	RunID         string        `json:"run_id,omitempty"`
	Committed     bool          `json:"committed"`
	Pushed        bool          `json:"pushed"`
	CommitMessage string        `json:"commit_message,omitempty"`
	Purges        []purgeReport `json:"purges,omitempty"`
}

type purgeReport struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newPurgeReports(results []services.PurgeResult) []purgeReport {
	out := make([]purgeReport, 0, len(results))
	for _, p := range results {
		rep := purgeReport{URL: p.URL, Status: p.StatusCode}
		if p.Err != nil {
			rep.Error = p.Err.Error()
		}
		out = append(out, rep)
	}
	return out
}

func newRunReport(result *tasks.RunResult) runReport {
	rep := runReport{
		Run:         result.Decision.Run,
		Reason:      result.Decision.Reason,
		ForceUpdate: result.Decision.ForceUpdate,
		Matched:     result.Decision.Matched,
		Purges:      newPurgeReports(result.Purges),
	}
	if result.Run != nil {
		rep.RunID = result.Run.ID()
	}
	if result.Publish != nil {
		rep.Committed = result.Publish.Committed
		rep.Pushed = result.Publish.Pushed
		rep.CommitMessage = result.Publish.Message
	}
	return rep
}

// eventFromFlags builds the event from --event-name and friends, falling back to the GitHub Actions environment.
//
// A push given without --files diffs the last two commits of the working tree.
func (r *Runner) eventFromFlags(ctx context.Context, cmd *cli.Command) (trigger.Event, error) {
	name := cmd.String("event-name")
	if name == "" {
		ev, err := trigger.FromGitHubEnv(r.getenv)
		if err != nil {
			return ev, fmt.Errorf("%w (pass --event-name outside GitHub Actions)", err)
		}
		return ev, nil
	}

	kind, err := trigger.ParseKind(name)
	if err != nil {
		return trigger.Event{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	ev := trigger.Event{Kind: kind}
	switch kind {
	case trigger.Push:
		if cmd.Bool("force-update") {
			r.logger.Warn("--force-update is ignored for push events")
		}
		for _, f := range cmd.StringSlice("files") {
			for _, part := range strings.Split(f, ",") {
				if p := shared.NormalizePath(part); p != "" {
					ev.ChangedFiles = append(ev.ChangedFiles, p)
				}
			}
		}
		if len(ev.ChangedFiles) == 0 {
			files, err := r.gitService().ChangedFiles(ctx)
			if err != nil {
				return ev, err
			}
			ev.ChangedFiles = files
		}
	case trigger.Dispatch:
		ev.Inputs.ForceUpdate = cmd.Bool("force-update")
	}
	return ev, nil
}

// Trigger evaluates an event and prints the decision.
func (r *Runner) Trigger(ctx context.Context, cmd *cli.Command) error {
	ev, err := r.eventFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	evaluator, err := r.evaluator()
	if err != nil {
		return err
	}

	decision := evaluator.Evaluate(ev)
	if cmd.Bool("json") {
		return r.writeJSON(runReport{
			Run:         decision.Run,
			Reason:      decision.Reason,
			ForceUpdate: decision.ForceUpdate,
			Matched:     decision.Matched,
		}, true)
	}

	if decision.Run {
		r.writePlain("✓ Pipeline would run: %s\n", decision.Reason)
	} else {
		r.writePlain("✗ Pipeline would not run: %s\n", decision.Reason)
	}
	for _, m := range decision.Matched {
		r.writePlain("  • %s\n", m)
	}
	return r.writePlain("Updater flag: %s\n", trigger.ForceFlag(decision))
}

// Run executes the pipeline for the event.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	ev, err := r.eventFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	jsonOut := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	if jsonOut {
		go r.logProgress(progressCh, done)
	} else {
		go r.printProgress(progressCh, done)
	}

	result, err := engine.Run(ctx, ev, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}
	if jsonOut {
		return r.writeJSON(newRunReport(result), true)
	}
	if result.Skipped {
		return nil
	}

	r.writePlainHeader("Statistics pipeline complete")
	if result.Publish != nil && result.Publish.Committed {
		r.writePlain("Committed: %s\n", result.Publish.Message)
	} else {
		r.writePlain("Committed: nothing to commit\n")
	}
	ok, failed := services.CountPurges(result.Purges)
	return r.writePlain("Cache purges: %d ok, %d failed\n", ok, failed)
}

// printProgress writes pipeline phases to the output until the channel closes.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		switch update.Phase {
		case tasks.Evaluate:
			r.writePlain("🔎 %s\n", update.Message)
		case tasks.Checkout:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.Update:
			r.writePlain("📊 %s\n", update.Message)
		case tasks.Publish:
			r.writePlain("📝 %s\n", update.Message)
		case tasks.Wait, tasks.Purge:
			r.writePlain("🧹 %s\n", update.Message)
		case tasks.Lock, tasks.Done:
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}
}
