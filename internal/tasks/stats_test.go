package tasks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/plstat/internal/models"
	th "github.com/desertthunder/plstat/internal/testing"
)

type memSnapshots struct {
	batches [][]*models.Snapshot
	err     error
}

func (m *memSnapshots) CreateMany(s []*models.Snapshot) error {
	m.batches = append(m.batches, s)
	return m.err
}

func clock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	th.MustWriteFile(t, filepath.Join(root, "news.m3u"), th.SamplePlaylist)
	th.MustWriteFile(t, filepath.Join(root, "lists", "music.M3U"), "#EXTM3U\n#EXTINF:200 group-title=\"Music\",Song\nhttp://m/1\n")
	th.MustWriteFile(t, filepath.Join(root, "README.md"), "not a playlist")
	th.MustWriteFile(t, filepath.Join(root, ".git", "ignored.m3u"), "http://x\n")
	th.MustWriteFile(t, filepath.Join(root, "stats", "old.m3u"), "http://x\n")
	return root
}

func TestStatsUpdater(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	t.Run("Scan", func(t *testing.T) {
		root := setupTree(t)
		u := NewStatsUpdater(StatsOpts{Root: root})

		paths, err := u.Scan()
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(paths) != 2 || paths[0] != "lists/music.M3U" || paths[1] != "news.m3u" {
			t.Errorf("expected [lists/music.M3U news.m3u], got %v", paths)
		}
	})

	t.Run("Writes Statistics", func(t *testing.T) {
		root := setupTree(t)
		snaps := &memSnapshots{}
		u := NewStatsUpdater(StatsOpts{Root: root, Snapshots: snaps, Now: clock(t1)})

		res, err := u.UpdateStats(WithRunID(ctx, "run-1"), false)
		if err != nil {
			t.Fatalf("UpdateStats failed: %v", err)
		}
		if res.Parsed != 2 || res.Reused != 0 {
			t.Errorf("expected 2 parsed, got %+v", res)
		}

		th.AssertFileExists(t, filepath.Join(root, "stats", "news.m3u.json"))
		th.AssertFileExists(t, filepath.Join(root, "stats", "lists", "music.M3U.json"))
		th.AssertFileExists(t, filepath.Join(root, "stats", "summary.json"))
		th.AssertFileExists(t, filepath.Join(root, "stats", "README.md"))

		news, ok := res.Summary.Find("news.m3u")
		if !ok {
			t.Fatal("expected news.m3u in summary")
		}
		if news.Entries != 4 || news.UniqueURLs != 3 || news.Duplicates != 1 {
			t.Errorf("unexpected news stats %+v", news)
		}
		if res.Summary.TotalEntries != 5 {
			t.Errorf("expected 5 total entries, got %d", res.Summary.TotalEntries)
		}

		if len(snaps.batches) != 1 || len(snaps.batches[0]) != 2 || snaps.batches[0][0].RunID != "run-1" {
			t.Errorf("expected one batch of 2 snapshots for run-1, got %v", snaps.batches)
		}
	})

	t.Run("Unchanged Tree Is Byte Stable", func(t *testing.T) {
		root := setupTree(t)
		snaps := &memSnapshots{}
		u := NewStatsUpdater(StatsOpts{Root: root, Snapshots: snaps, Now: clock(t1, t2)})

		if _, err := u.UpdateStats(ctx, false); err != nil {
			t.Fatalf("first update failed: %v", err)
		}
		before := th.MustReadFile(t, filepath.Join(root, "stats", "summary.json"))

		res, err := u.UpdateStats(ctx, false)
		if err != nil {
			t.Fatalf("second update failed: %v", err)
		}
		if res.Reused != 2 || res.Parsed != 0 {
			t.Errorf("expected all playlists reused, got %+v", res)
		}
		if len(res.Written) != 0 {
			t.Errorf("expected no files written, got %v", res.Written)
		}
		if after := th.MustReadFile(t, filepath.Join(root, "stats", "summary.json")); after != before {
			t.Error("expected summary.json to be unchanged")
		}
		if len(snaps.batches) != 1 {
			t.Errorf("expected no new snapshots, got %d batches", len(snaps.batches))
		}
	})

	t.Run("Force Reparses Everything", func(t *testing.T) {
		root := setupTree(t)
		u := NewStatsUpdater(StatsOpts{Root: root, Now: clock(t1, t2)})

		if _, err := u.UpdateStats(ctx, false); err != nil {
			t.Fatalf("first update failed: %v", err)
		}
		res, err := u.UpdateStats(ctx, true)
		if err != nil {
			t.Fatalf("forced update failed: %v", err)
		}
		if res.Parsed != 2 || res.Reused != 0 {
			t.Errorf("expected all playlists parsed, got %+v", res)
		}
		if !res.Summary.UpdatedAt.Equal(t2) {
			t.Errorf("expected summary timestamp %v, got %v", t2, res.Summary.UpdatedAt)
		}
	})

	t.Run("Changed Playlist Is Reparsed", func(t *testing.T) {
		root := setupTree(t)
		u := NewStatsUpdater(StatsOpts{Root: root, Now: clock(t1, t2)})

		if _, err := u.UpdateStats(ctx, false); err != nil {
			t.Fatalf("first update failed: %v", err)
		}
		th.MustWriteFile(t, filepath.Join(root, "news.m3u"), "#EXTM3U\n#EXTINF:-1,Only\nhttp://only\n")

		res, err := u.UpdateStats(ctx, false)
		if err != nil {
			t.Fatalf("second update failed: %v", err)
		}
		if res.Parsed != 1 || res.Reused != 1 {
			t.Errorf("expected 1 parsed and 1 reused, got %+v", res)
		}
		news, _ := res.Summary.Find("news.m3u")
		if news.Entries != 1 {
			t.Errorf("expected updated entry count 1, got %d", news.Entries)
		}
	})

	t.Run("Removed Playlist Drops Its Statistics", func(t *testing.T) {
		root := setupTree(t)
		u := NewStatsUpdater(StatsOpts{Root: root, Now: clock(t1, t2)})

		if _, err := u.UpdateStats(ctx, false); err != nil {
			t.Fatalf("first update failed: %v", err)
		}
		if err := os.Remove(filepath.Join(root, "news.m3u")); err != nil {
			t.Fatal(err)
		}

		res, err := u.UpdateStats(ctx, false)
		if err != nil {
			t.Fatalf("second update failed: %v", err)
		}
		if len(res.Removed) != 1 {
			t.Errorf("expected one stale file removed, got %v", res.Removed)
		}
		if _, err := os.Stat(filepath.Join(root, "stats", "news.m3u.json")); !os.IsNotExist(err) {
			t.Errorf("expected stale stats file to be deleted, got %v", err)
		}
	})

	t.Run("Corrupt Summary Is Ignored", func(t *testing.T) {
		root := setupTree(t)
		th.MustWriteFile(t, filepath.Join(root, "stats", "summary.json"), "{not json")
		u := NewStatsUpdater(StatsOpts{Root: root, Now: clock(t1)})

		res, err := u.UpdateStats(ctx, false)
		if err != nil {
			t.Fatalf("UpdateStats failed: %v", err)
		}
		if res.Parsed != 2 {
			t.Errorf("expected a full parse, got %+v", res)
		}
	})

	t.Run("Progress Bar Output", func(t *testing.T) {
		root := setupTree(t)
		var bar bytes.Buffer
		u := NewStatsUpdater(StatsOpts{Root: root, Bar: &bar, Now: clock(t1)})

		if err := u.Update(ctx, false); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if bar.Len() == 0 {
			t.Error("expected progress bar output")
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		root := setupTree(t)
		progress := make(chan ProgressUpdate, 16)
		u := NewStatsUpdater(StatsOpts{Root: root, Progress: progress, Now: clock(t1)})

		if err := u.Update(ctx, false); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		close(progress)

		counts := map[Phase]int{}
		for p := range progress {
			counts[p.Phase]++
		}
		if counts[ScanPlaylists] != 1 || counts[ParsePlaylist] != 2 || counts[WriteStats] != 1 {
			t.Errorf("unexpected progress counts %v", counts)
		}
	})

	t.Run("Snapshot Errors Are Logged", func(t *testing.T) {
		root := setupTree(t)
		u := NewStatsUpdater(StatsOpts{Root: root, Snapshots: &memSnapshots{err: errors.New("db down")}, Now: clock(t1)})

		if err := u.Update(ctx, false); err != nil {
			t.Errorf("expected snapshot failure to be ignored, got %v", err)
		}
	})

	t.Run("Missing Root", func(t *testing.T) {
		u := NewStatsUpdater(StatsOpts{Root: filepath.Join(t.TempDir(), "missing")})
		if err := u.Update(ctx, false); err == nil {
			t.Error("expected error for missing root")
		}
	})

	t.Run("LoadSummary Without File", func(t *testing.T) {
		summary, err := LoadSummary(t.TempDir())
		if err != nil || summary != nil {
			t.Errorf("expected nil summary and error, got %v, %v", summary, err)
		}
	})
}
