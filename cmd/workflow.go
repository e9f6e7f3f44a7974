package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/formatter"
	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/workflow"
)

// Workflow renders the GitHub Actions workflow, or checks a committed copy for drift.
func (r *Runner) Workflow(ctx context.Context, cmd *cli.Command) error {
	opts := workflow.OptionsFromConfig(r.config)
	path := cmd.String("output")

	if cmd.Bool("check") {
		if path == "-" {
			return fmt.Errorf("%w: --check needs a file path", shared.ErrInvalidFlag)
		}
		ok, err := workflow.Check(path, opts)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s is missing or out of date, run plstat workflow", shared.ErrInvalidConfig, path)
		}
		if wf, err := workflow.Load(path); err != nil {
			return err
		} else if err := wf.Validate(); err != nil {
			return err
		}
		return r.writePlain("✓ %s is up to date\n", path)
	}

	data, err := workflow.Render(opts)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err := r.output.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	written, err := formatter.WriteIfChanged(path, data)
	if err != nil {
		return err
	}
	if !written {
		return r.writePlain("%s unchanged\n", path)
	}
	r.logger.Info("wrote workflow", "path", path)
	return r.writePlain("Wrote %s\n", path)
}
