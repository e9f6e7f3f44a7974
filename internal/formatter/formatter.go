// package formatter renders playlist statistics and run history (CSV, Markdown, plain text, terminal tables)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/playlist"
	"github.com/desertthunder/plstat/internal/shared"
)

const (
	SummaryFile = "summary.json"
	ReadmeFile  = "README.md"
)

// topGroupCount is how many groups are listed per playlist in the README.
const topGroupCount = 3

// ExportToCSV converts a Summary to CSV with one row per playlist
func ExportToCSV(summary *models.Summary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Path", "Entries", "UniqueURLs", "Duplicates", "Groups", "WithTVGID", "WithLogo", "LiveEntries", "TotalDuration", "SizeBytes", "Hash"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range summary.Playlists {
		record := []string{
			s.Path,
			strconv.Itoa(s.Entries),
			strconv.Itoa(s.UniqueURLs),
			strconv.Itoa(s.Duplicates),
			strconv.Itoa(len(s.Groups)),
			strconv.Itoa(s.WithTVGID),
			strconv.Itoa(s.WithLogo),
			strconv.Itoa(s.LiveEntries),
			strconv.Itoa(s.TotalDuration),
			strconv.FormatInt(s.SizeBytes, 10),
			s.Hash,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the README placed next to the statistics files
func ExportToMarkdown(summary *models.Summary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Media statistics\n\n")
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n", len(summary.Playlists)))
	buf.WriteString(fmt.Sprintf("**Entries**: %s\n", humanize.Comma(int64(summary.TotalEntries))))
	buf.WriteString(fmt.Sprintf("**Size**: %s\n", humanize.Bytes(uint64(max(summary.TotalSize, 0)))))
	buf.WriteString(fmt.Sprintf("**Updated**: %s\n\n", summary.UpdatedAt.UTC().Format(time.RFC3339)))

	if len(summary.Playlists) == 0 {
		buf.WriteString("No playlists found.\n")
		return buf.Bytes(), nil
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Playlist", "Entries", "Unique", "Duplicates", "Live", "Size", "Top groups"})
	for _, s := range summary.Playlists {
		tw.AppendRow(table.Row{
			fmt.Sprintf("[%s](../%s)", s.Path, s.Path),
			s.Entries,
			s.UniqueURLs,
			s.Duplicates,
			s.LiveEntries,
			humanize.Bytes(uint64(max(s.SizeBytes, 0))),
			strings.Join(playlist.TopGroups(s.Groups, topGroupCount), ", "),
		})
	}
	buf.WriteString(tw.RenderMarkdown())
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// ExportToText converts a Summary to plain text
func ExportToText(summary *models.Summary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlists: %d\n", len(summary.Playlists)))
	buf.WriteString(fmt.Sprintf("Entries: %d\n\n", summary.TotalEntries))

	for i, s := range summary.Playlists {
		buf.WriteString(fmt.Sprintf("%d. %s - %d entries, %d duplicates, %d groups\n", i+1, s.Path, s.Entries, s.Duplicates, len(s.Groups)))
	}

	return buf.Bytes(), nil
}

// ToStatsJSON renders a single playlist's statistics
func ToStatsJSON(stats models.PlaylistStats) ([]byte, error) {
	return shared.MarshalJSON(stats, true)
}

// StatsFilePath maps a playlist path to its statistics file under outputDir.
func StatsFilePath(outputDir, playlistPath string) string {
	return filepath.Join(outputDir, filepath.FromSlash(path.Clean(playlistPath))+".json")
}

// WriteIfChanged writes data to name unless the file already holds exactly data.
// It reports whether the file was written.
func WriteIfChanged(name string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(name); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return true, nil
}

// WriteStatsResult lists the files touched by WriteStatsFiles
type WriteStatsResult struct {
	Written   []string
	Unchanged int
}

// WriteStatsFiles writes one JSON file per playlist, summary.json and README.md under outputDir.
//
// Files whose content is unchanged are left alone.
func WriteStatsFiles(outputDir string, summary *models.Summary) (*WriteStatsResult, error) {
	result := &WriteStatsResult{Written: []string{}}
	write := func(name string, data []byte) error {
		written, err := WriteIfChanged(name, data)
		if err != nil {
			return err
		}
		if written {
			result.Written = append(result.Written, name)
		} else {
			result.Unchanged++
		}
		return nil
	}

	for _, s := range summary.Playlists {
		data, err := ToStatsJSON(s)
		if err != nil {
			return result, fmt.Errorf("failed to generate stats JSON: %w", err)
		}
		if err := write(StatsFilePath(outputDir, s.Path), data); err != nil {
			return result, err
		}
	}

	summaryJSON, err := shared.MarshalJSON(summary, true)
	if err != nil {
		return result, fmt.Errorf("failed to generate summary JSON: %w", err)
	}
	if err := write(filepath.Join(outputDir, SummaryFile), summaryJSON); err != nil {
		return result, err
	}

	readme, err := ExportToMarkdown(summary)
	if err != nil {
		return result, fmt.Errorf("failed to generate Markdown: %w", err)
	}
	if err := write(filepath.Join(outputDir, ReadmeFile), readme); err != nil {
		return result, err
	}

	return result, nil
}

// RenderSummaryTable renders a terminal table of playlist statistics
func RenderSummaryTable(summary *models.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Playlist", "Entries", "Unique", "Dupes", "Groups", "Live", "Duration", "Size"})
	for _, s := range summary.Playlists {
		tw.AppendRow(table.Row{
			s.Path,
			s.Entries,
			s.UniqueURLs,
			s.Duplicates,
			len(s.Groups),
			s.LiveEntries,
			shared.FormatDuration(s.TotalDuration),
			humanize.Bytes(uint64(max(s.SizeBytes, 0))),
		})
	}
	tw.AppendFooter(table.Row{"Total", summary.TotalEntries, "", "", "", "", "", humanize.Bytes(uint64(max(summary.TotalSize, 0)))})
	tw.SetColumnConfigs(rightAligned(2, 3, 4, 5, 6, 7, 8))
	return tw.Render()
}

// RenderGroupsTable renders the n largest groups of one playlist
func RenderGroupsTable(stats models.PlaylistStats, n int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Group", "Entries"})
	for _, g := range playlist.TopGroups(stats.Groups, n) {
		tw.AppendRow(table.Row{g, stats.Groups[g]})
	}
	tw.SetColumnConfigs(rightAligned(2))
	return tw.Render()
}

// RenderRunsTable renders pipeline run history, newest first
func RenderRunsTable(runs []*models.Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Trigger", "Force", "Status", "Committed", "Purged", "Started", "Duration", "Error"})
	for _, r := range runs {
		started := "-"
		if r.StartedAt != nil {
			started = humanize.Time(*r.StartedAt)
		}
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		tw.AppendRow(table.Row{
			r.Sequence(),
			r.Trigger,
			r.ForceUpdate,
			string(r.Status),
			r.Committed,
			fmt.Sprintf("%d/%d", r.PurgeOK, r.PurgeOK+r.PurgeFailed),
			started,
			duration,
			text.Trim(r.ErrorMessage, 60),
		})
	}
	tw.SetColumnConfigs(rightAligned(1))
	return tw.Render()
}

// RenderSnapshotsTable renders recorded snapshots of playlists, newest first
func RenderSnapshotsTable(snapshots []*models.Snapshot) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Recorded", "Playlist", "Entries", "Groups", "Dupes", "Size", "Hash"})
	for _, s := range snapshots {
		hash := s.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		tw.AppendRow(table.Row{
			humanize.Time(s.CreatedAt()),
			s.Path,
			s.Entries,
			s.Groups,
			s.Duplicates,
			humanize.Bytes(uint64(max(s.SizeBytes, 0))),
			hash,
		})
	}
	tw.SetColumnConfigs(rightAligned(3, 4, 5, 6))
	return tw.Render()
}

func rightAligned(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	return configs
}
