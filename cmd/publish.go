package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Publish stages, commits when the tree changed and pushes, exactly as the pipeline's publish step.
func (r *Runner) Publish(ctx context.Context, cmd *cli.Command) error {
	result, err := r.publisher(r.gitService()).Publish(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"committed": result.Committed,
			"pushed":    result.Pushed,
			"message":   result.Message,
		}, true)
	}

	if result.Committed {
		r.writePlain("✓ Committed: %s\n", result.Message)
	} else {
		r.writePlain("• No changes to commit\n")
	}
	return r.writePlain("✓ Pushed to %s/%s\n", r.config.Repository.Remote, r.config.Repository.Branch)
}
