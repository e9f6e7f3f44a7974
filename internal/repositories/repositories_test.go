package repositories

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// Each connection to :memory: is a separate database.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	t.Run("Unknown Table", func(t *testing.T) {
		if _, err := NextSequence(db, "nope"); err == nil {
			t.Error("expected error for missing sequence table")
		}
	})
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun("push", false)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Create Failure Leaves Run Unidentified", func(t *testing.T) {
		tests := []struct {
			name  string
			setup func(t *testing.T, db *sql.DB)
			run   *models.Run
		}{
			{name: "invalid run", setup: func(*testing.T, *sql.DB) {}, run: models.NewRun("", false)},
			{
				name: "insert error",
				setup: func(t *testing.T, db *sql.DB) {
					if _, err := db.Exec("DROP TABLE runs"); err != nil {
						t.Fatalf("failed to drop runs: %v", err)
					}
				},
				run: models.NewRun("push", false),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := setupTestDB(t)
				defer db.Close()
				tt.setup(t, db)

				if err := NewRunRepository(db).Create(tt.run); err == nil {
					t.Fatal("expected create to fail")
				}
				if tt.run.ID() != "" || tt.run.Sequence() != 0 {
					t.Errorf("expected no ID or sequence, got %q/%d", tt.run.ID(), tt.run.Sequence())
				}
			})
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun("workflow_dispatch", true)
		run.Start()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Trigger != "workflow_dispatch" || !got.ForceUpdate {
			t.Errorf("unexpected run %+v", got)
		}
		if got.Status != models.RunRunning {
			t.Errorf("expected running, got %s", got.Status)
		}
		if got.StartedAt == nil || got.CompletedAt != nil {
			t.Errorf("expected only StartedAt set, got %v / %v", got.StartedAt, got.CompletedAt)
		}

		bySeq, err := repo.GetBySequence(run.Sequence())
		if err != nil || bySeq.ID() != run.ID() {
			t.Errorf("expected lookup by sequence to find %s, got %v (%v)", run.ID(), bySeq, err)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewRunRepository(db).Get("missing")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun("push", false)
		run.Start()
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Committed = true
		run.CommitMessage = "Update media statistics [skip ci]"
		run.PurgeOK = 3
		run.PurgeFailed = 1
		run.Finish(models.RunSucceeded, nil)

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != models.RunSucceeded || !got.Committed || got.PurgeOK != 3 || got.PurgeFailed != 1 {
			t.Errorf("unexpected run after update %+v", got)
		}
		if got.CommitMessage != run.CommitMessage {
			t.Errorf("expected commit message %q, got %q", run.CommitMessage, got.CommitMessage)
		}
		if got.CompletedAt == nil {
			t.Error("expected CompletedAt to be set")
		}
	})

	t.Run("Update NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := models.NewRun("push", false)
		run.SetID("missing")
		if err := NewRunRepository(db).Update(run); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Update ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := models.NewRun("push", false)
		run.SetID("x")
		run.Status = "weird"
		if err := NewRunRepository(db).Update(run); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun("push", false)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected deleted run to be hidden, got %v", err)
		}
		if err := repo.Delete(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		for i, kind := range []string{"push", "workflow_dispatch", "push", "push"} {
			run := models.NewRun(kind, false)
			if i == 1 {
				run.Finish(models.RunFailed, errors.New("script failed"))
			} else {
				run.Finish(models.RunSucceeded, nil)
			}
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 4 || all[0].Sequence() != 4 {
			t.Errorf("expected 4 runs newest first, got %d (first seq %d)", len(all), all[0].Sequence())
		}

		failed, _ := repo.List(map[string]any{"status": "failed"})
		if len(failed) != 1 || failed[0].ErrorMessage != "script failed" {
			t.Errorf("expected one failed run with message, got %v", failed)
		}

		pushes, _ := repo.List(map[string]any{"trigger": "push"})
		if len(pushes) != 3 {
			t.Errorf("expected 3 push runs, got %d", len(pushes))
		}

		recent, _ := repo.Recent(2)
		if len(recent) != 2 || recent[1].Sequence() != 3 {
			t.Errorf("expected runs 4 and 3, got %v", recent)
		}
	})

	t.Run("Concurrent Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		var wg sync.WaitGroup
		errs := make(chan error, 5)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Create(models.NewRun("push", false))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}

		runs, _ := repo.List(nil)
		seen := map[int]bool{}
		for _, r := range runs {
			if seen[r.Sequence()] {
				t.Errorf("duplicate sequence %d", r.Sequence())
			}
			seen[r.Sequence()] = true
		}
	})
}

func TestSnapshotRepository(t *testing.T) {
	stats := func(path, hash string, entries int) models.PlaylistStats {
		return models.PlaylistStats{
			Path:       path,
			Entries:    entries,
			Duplicates: 1,
			Groups:     map[string]int{"News": 2, "Music": 1},
			SizeBytes:  512,
			Hash:       hash,
		}
	}

	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		s := models.NewSnapshot("", stats("a.m3u", "h1", 3))
		if err := repo.Create(s); err != nil {
			t.Fatalf("failed to create snapshot: %v", err)
		}

		got, err := repo.Get(s.ID())
		if err != nil {
			t.Fatalf("failed to get snapshot: %v", err)
		}
		if got.Path != "a.m3u" || got.Entries != 3 || got.Groups != 2 || got.SizeBytes != 512 || got.RunID != "" {
			t.Errorf("unexpected snapshot %+v", got)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewSnapshotRepository(db).Get("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("CreateMany And List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		batch := []*models.Snapshot{
			models.NewSnapshot("run-1", stats("a.m3u", "h1", 3)),
			models.NewSnapshot("run-1", stats("b.m3u", "h2", 5)),
		}
		if err := repo.CreateMany(batch); err != nil {
			t.Fatalf("failed to create snapshots: %v", err)
		}
		if err := repo.Create(models.NewSnapshot("run-2", stats("a.m3u", "h3", 4))); err != nil {
			t.Fatalf("failed to create snapshot: %v", err)
		}

		byRun, _ := repo.List(map[string]any{"run_id": "run-1"})
		if len(byRun) != 2 {
			t.Errorf("expected 2 snapshots for run-1, got %d", len(byRun))
		}

		history, err := repo.History("a.m3u", 10)
		if err != nil {
			t.Fatalf("failed to list history: %v", err)
		}
		if len(history) != 2 || history[0].Hash != "h3" {
			t.Errorf("expected newest snapshot first, got %v", history)
		}
	})

	t.Run("CreateMany Rolls Back On Invalid", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		batch := []*models.Snapshot{
			models.NewSnapshot("run-1", stats("a.m3u", "h1", 3)),
			models.NewSnapshot("run-1", stats("b.m3u", "", 5)),
		}
		if err := repo.CreateMany(batch); err == nil {
			t.Fatal("expected validation error for missing hash")
		}

		all, _ := repo.List(nil)
		if len(all) != 0 {
			t.Errorf("expected rollback, found %d snapshots", len(all))
		}
	})
}
