package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/services"
)

// Purge requests a CDN cache purge for the configured paths, or the paths given as arguments.
//
// Failed purges are reported but never fail the command.
func (r *Runner) Purge(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.StringArgs("paths")
	if len(paths) == 0 {
		paths = r.purgePaths()
	} else {
		for i, p := range paths {
			paths[i] = r.config.ExpandPath(p)
		}
	}
	if len(paths) == 0 {
		r.logger.Warn("no purge paths configured")
		return nil
	}

	delay := r.config.PurgeDelay()
	if cmd.Bool("no-delay") {
		delay = 0
	}

	results, err := r.purgeService(delay).Purge(ctx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Warn("cache purge cancelled")
			return nil
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newPurgeReports(results), true)
	}

	for _, p := range results {
		if p.OK() {
			r.writePlain("✓ %d %s\n", p.StatusCode, p.URL)
			continue
		}
		if p.Err != nil {
			r.writePlain("✗ %s: %v\n", p.URL, p.Err)
		} else {
			r.writePlain("✗ %d %s\n", p.StatusCode, p.URL)
		}
	}
	ok, failed := services.CountPurges(results)
	return r.writePlainln("Purged %d of %d (%d failed)", ok, len(results), failed)
}
