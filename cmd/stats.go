package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/formatter"
	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/tasks"
)

// StatsUpdate runs the built-in statistics updater against the working tree.
func (r *Runner) StatsUpdate(ctx context.Context, cmd *cli.Command) error {
	force := cmd.Bool("force-update")

	var snapshots tasks.SnapshotStore
	if _, repo := r.repositories(); repo != nil {
		snapshots = repo
	}

	result, err := r.statsUpdater(snapshots, nil).UpdateStats(ctx, force)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"playlists": len(result.Summary.Playlists),
			"entries":   result.Summary.TotalEntries,
			"parsed":    result.Parsed,
			"reused":    result.Reused,
			"written":   result.Written,
			"removed":   result.Removed,
		}, true)
	}

	r.writePlain("%s\n", formatter.RenderSummaryTable(result.Summary))
	r.writePlain("Parsed %d, unchanged %d, wrote %d files", result.Parsed, result.Reused, len(result.Written))
	if len(result.Removed) > 0 {
		r.writePlain(", removed %d", len(result.Removed))
	}
	return r.writePlain("\n")
}

func (r *Runner) loadSummary() (*models.Summary, error) {
	summary, err := tasks.LoadSummary(r.statsDir())
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("%w: no %s in %s (run `plstat stats update` first)", shared.ErrPlaylistNotFound, formatter.SummaryFile, r.statsDir())
	}
	return summary, nil
}

// StatsShow prints the summary, or one playlist with its largest groups.
func (r *Runner) StatsShow(ctx context.Context, cmd *cli.Command) error {
	summary, err := r.loadSummary()
	if err != nil {
		return err
	}
	format := strings.ToLower(cmd.String("format"))

	if path := cmd.StringArg("playlist"); path != "" {
		stats, ok := summary.Find(shared.NormalizePath(path))
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, path)
		}
		if format == "json" {
			return r.writeJSON(stats, true)
		}
		return r.showPlaylist(stats, cmd.Int("groups"))
	}

	var data []byte
	switch format {
	case "", "table":
		return r.writePlain("%s\n", formatter.RenderSummaryTable(summary))
	case "json":
		return r.writeJSON(summary, true)
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(summary)
	case "csv":
		data, err = formatter.ExportToCSV(summary)
	case "text", "txt":
		data, err = formatter.ExportToText(summary)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

func (r *Runner) showPlaylist(s models.PlaylistStats, groups int) error {
	r.writePlainHeader(s.Path)
	r.writePlain("Entries:      %s\n", humanize.Comma(int64(s.Entries)))
	r.writePlain("Unique URLs:  %s\n", humanize.Comma(int64(s.UniqueURLs)))
	r.writePlain("Duplicates:   %s\n", humanize.Comma(int64(s.Duplicates)))
	r.writePlain("With tvg-id:  %s\n", humanize.Comma(int64(s.WithTVGID)))
	r.writePlain("With logo:    %s\n", humanize.Comma(int64(s.WithLogo)))
	r.writePlain("Live:         %s\n", humanize.Comma(int64(s.LiveEntries)))
	r.writePlain("Duration:     %s\n", shared.FormatDuration(s.TotalDuration))
	r.writePlain("Size:         %s\n", humanize.Bytes(uint64(max(s.SizeBytes, 0))))
	r.writePlain("Hash:         %s\n", s.Hash)
	if len(s.Groups) == 0 {
		return nil
	}
	return r.writePlain("\n%s\n", formatter.RenderGroupsTable(s, groups))
}

// StatsHistory lists recorded snapshots of one playlist.
func (r *Runner) StatsHistory(ctx context.Context, cmd *cli.Command) error {
	path := shared.NormalizePath(cmd.StringArg("playlist"))
	if path == "" {
		return fmt.Errorf("%w: playlist path", shared.ErrMissingArgument)
	}

	_, snapshots := r.repositories()
	if snapshots == nil {
		return fmt.Errorf("%w: run history database unavailable", shared.ErrServiceUnavailable)
	}

	history, err := snapshots.History(path, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]map[string]any, 0, len(history))
		for _, s := range history {
			rows = append(rows, map[string]any{
				"id":          s.ID(),
				"run_id":      s.RunID,
				"path":        s.Path,
				"entries":     s.Entries,
				"groups":      s.Groups,
				"duplicates":  s.Duplicates,
				"size_bytes":  s.SizeBytes,
				"hash":        s.Hash,
				"recorded_at": s.CreatedAt(),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(history) == 0 {
		return r.writePlain("No snapshots recorded for %s\n", path)
	}
	return r.writePlain("%s\n", formatter.RenderSnapshotsTable(history))
}
