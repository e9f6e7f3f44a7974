package formatter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plstat/internal/models"
	th "github.com/desertthunder/plstat/internal/testing"
)

func sampleSummary() *models.Summary {
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Summary{
		Playlists: []models.PlaylistStats{
			{
				Path:          "lists/news.m3u",
				Entries:       4,
				UniqueURLs:    3,
				Duplicates:    1,
				Groups:        map[string]int{"News": 2, "Music": 1, "Undefined": 1},
				WithTVGID:     2,
				WithLogo:      1,
				LiveEntries:   3,
				TotalDuration: 120,
				SizeBytes:     2048,
				Hash:          "abc",
				UpdatedAt:     updated,
			},
			{
				Path:      "sports.m3u",
				Entries:   1,
				Groups:    map[string]int{"Sports": 1},
				SizeBytes: 100,
				Hash:      "def",
				UpdatedAt: updated,
			},
		},
		TotalEntries: 5,
		TotalSize:    2148,
		UpdatedAt:    updated,
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleSummary())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Path,Entries,UniqueURLs,Duplicates,Groups") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "lists/news.m3u,4,3,1,3,2,1,3,120,2048,abc") {
			t.Errorf("CSV missing news row, got: %s", output)
		}
		if lines := strings.Count(output, "\n"); lines != 3 {
			t.Errorf("expected 3 lines, got %d", lines)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleSummary())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Media statistics",
			"**Playlists**: 2",
			"**Entries**: 5",
			"**Size**: 2.1 kB",
			"**Updated**: 2025-03-01T12:00:00Z",
			"[lists/news.m3u](../lists/news.m3u)",
			"News, Music, Undefined",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q, got:\n%s", want, output)
			}
		}

		t.Run("is deterministic", func(t *testing.T) {
			again, _ := ExportToMarkdown(sampleSummary())
			if string(again) != output {
				t.Error("expected identical output for identical input")
			}
		})

		t.Run("empty summary", func(t *testing.T) {
			data, _ := ExportToMarkdown(&models.Summary{})
			if !strings.Contains(string(data), "No playlists found.") {
				t.Errorf("expected empty notice, got %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleSummary())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlists: 2") {
			t.Errorf("text missing count, got: %s", output)
		}
		if !strings.Contains(output, "1. lists/news.m3u - 4 entries, 1 duplicates, 3 groups") {
			t.Errorf("text missing first playlist, got: %s", output)
		}
	})

	t.Run("ToStatsJSON", func(t *testing.T) {
		data, err := ToStatsJSON(sampleSummary().Playlists[0])
		if err != nil {
			t.Fatalf("ToStatsJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["unique_urls"].(float64) != 3 {
			t.Errorf("expected unique_urls 3, got %v", decoded["unique_urls"])
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("StatsFilePath", func(t *testing.T) {
		got := StatsFilePath("stats", "lists/news.m3u")
		want := filepath.Join("stats", "lists", "news.m3u.json")
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("WriteIfChanged", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "nested", "file.txt")

		written, err := WriteIfChanged(name, []byte("one"))
		if err != nil || !written {
			t.Fatalf("expected first write, got %v (%v)", written, err)
		}
		written, err = WriteIfChanged(name, []byte("one"))
		if err != nil || written {
			t.Errorf("expected identical content to be skipped, got %v (%v)", written, err)
		}
		written, _ = WriteIfChanged(name, []byte("two"))
		if !written {
			t.Error("expected changed content to be written")
		}
		if got := th.MustReadFile(t, name); got != "two" {
			t.Errorf("expected 'two', got %q", got)
		}
	})

	t.Run("WriteStatsFiles", func(t *testing.T) {
		dir := t.TempDir()
		summary := sampleSummary()

		result, err := WriteStatsFiles(dir, summary)
		if err != nil {
			t.Fatalf("WriteStatsFiles failed: %v", err)
		}
		if len(result.Written) != 4 {
			t.Errorf("expected 4 files written, got %v", result.Written)
		}

		th.AssertFileExists(t, filepath.Join(dir, "lists", "news.m3u.json"))
		th.AssertFileExists(t, filepath.Join(dir, "sports.m3u.json"))
		th.AssertFileExists(t, filepath.Join(dir, SummaryFile))
		th.AssertFileExists(t, filepath.Join(dir, ReadmeFile))

		var decoded models.Summary
		if err := json.Unmarshal([]byte(th.MustReadFile(t, filepath.Join(dir, SummaryFile))), &decoded); err != nil {
			t.Fatalf("invalid summary JSON: %v", err)
		}
		if decoded.TotalEntries != 5 || len(decoded.Playlists) != 2 {
			t.Errorf("unexpected summary %+v", decoded)
		}

		t.Run("second write is a no-op", func(t *testing.T) {
			result, err := WriteStatsFiles(dir, summary)
			if err != nil {
				t.Fatalf("WriteStatsFiles failed: %v", err)
			}
			if len(result.Written) != 0 || result.Unchanged != 4 {
				t.Errorf("expected no writes, got %+v", result)
			}
		})

		t.Run("unwritable directory", func(t *testing.T) {
			blocker := filepath.Join(t.TempDir(), "file")
			if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := WriteStatsFiles(filepath.Join(blocker, "stats"), summary); err == nil {
				t.Error("expected error when output dir is under a file")
			}
		})
	})
}

func TestTables(t *testing.T) {
	t.Run("RenderSummaryTable", func(t *testing.T) {
		out := RenderSummaryTable(sampleSummary())
		for _, want := range []string{"lists/news.m3u", "sports.m3u", "2:00", "2.0 kB"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("RenderGroupsTable", func(t *testing.T) {
		out := RenderGroupsTable(sampleSummary().Playlists[0], 2)
		if !strings.Contains(out, "News") || !strings.Contains(out, "Music") {
			t.Errorf("expected top groups, got:\n%s", out)
		}
		if strings.Contains(out, "Undefined") {
			t.Errorf("expected only two groups, got:\n%s", out)
		}
	})

	t.Run("RenderRunsTable", func(t *testing.T) {
		ok := models.RestoreRun("a", 2, time.Now(), time.Now(), nil)
		ok.Trigger = "push"
		ok.Status = models.RunSucceeded
		ok.Committed = true
		ok.PurgeOK = 4
		ok.Start()
		ok.Finish(models.RunSucceeded, nil)

		failed := models.RestoreRun("b", 1, time.Now(), time.Now(), nil)
		failed.Trigger = "workflow_dispatch"
		failed.ForceUpdate = true
		failed.Finish(models.RunFailed, os.ErrNotExist)

		out := RenderRunsTable([]*models.Run{ok, failed})
		for _, want := range []string{"push", "succeeded", "4/4", "workflow_dispatch", "failed", "file does not exist"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("RenderSnapshotsTable", func(t *testing.T) {
		snap := models.NewSnapshot("run-1", sampleSummary().Playlists[0])
		snap.Hash = "0123456789abcdef0123"

		out := RenderSnapshotsTable([]*models.Snapshot{snap})
		for _, want := range []string{"lists/news.m3u", "2.0 kB", "0123456789ab"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "0123456789abc") {
			t.Errorf("expected hash truncated to 12 characters:\n%s", out)
		}
	})
}
