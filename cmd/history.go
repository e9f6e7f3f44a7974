package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/formatter"
	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/server"
	"github.com/desertthunder/plstat/internal/shared"
)

// History lists recent pipeline runs from the run history database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	runs, _ := r.repositories()
	if runs == nil {
		return fmt.Errorf("%w: run history database unavailable", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		if !models.RunStatus(status).Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
		}
		criteria["status"] = status
	}
	if kind := cmd.String("trigger"); kind != "" {
		criteria["trigger"] = kind
	}

	list, err := runs.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]server.RunView, 0, len(list))
		for _, run := range list {
			views = append(views, server.NewRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(list) == 0 {
		return r.writePlain("No runs recorded\n")
	}
	return r.writePlain("%s\n", formatter.RenderRunsTable(list))
}
