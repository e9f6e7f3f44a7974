package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/services"
	"github.com/desertthunder/plstat/internal/shared"
)

// Dispatch starts the workflow remotely with a workflow_dispatch event carrying force_update.
func (r *Runner) Dispatch(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	token := cfg.Token(r.getenv)
	if token == "" {
		return fmt.Errorf("%w: set %s", shared.ErrMissingToken, cfg.Repository.TokenEnv)
	}

	workflow := cmd.String("workflow")
	if workflow == "" {
		workflow = cfg.GitHub.Workflow
	}
	ref := cmd.String("ref")
	if ref == "" {
		ref = cfg.Repository.Branch
	}
	force := cmd.Bool("force-update")

	gh, err := services.NewGitHubService(ctx, cfg.GitHub.APIURL, cfg.Repository.Owner, cfg.Repository.Name, token, r.httpClient)
	if err != nil {
		return err
	}

	r.logger.Info("dispatching workflow",
		"repository", cfg.Repository.Owner+"/"+cfg.Repository.Name,
		"workflow", workflow, "ref", ref, "force_update", force)
	if err := gh.DispatchWorkflow(ctx, workflow, ref, force); err != nil {
		return err
	}
	return r.writePlain("Dispatched %s on %s (force_update=%t)\n", workflow, ref, force)
}
