package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/shared"
)

const runColumns = `id, sequence, trigger_kind, force_update, status, committed, commit_message, error_message,
		purge_ok, purge_failed, started_at, completed_at, created_at, updated_at, deleted_at`

var _ models.MutableStore[*models.Run] = (*RunRepository)(nil)

// RunRepository stores pipeline run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with generated ID and sequence.
// The run keeps its ID and sequence only when the insert succeeds.
func (r *RunRepository) Create(run *models.Run) (err error) {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)
	defer func() {
		if err != nil {
			run.SetID("")
			run.SetSequence(0)
		}
	}()

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, sequence, trigger_kind, force_update, status, committed, commit_message, error_message,
			purge_ok, purge_failed, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		sequence,
		run.Trigger,
		run.ForceUpdate,
		string(run.Status),
		run.Committed,
		run.CommitMessage,
		run.ErrorMessage,
		run.PurgeOK,
		run.PurgeFailed,
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update persists the mutable fields of a run
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, committed = ?, commit_message = ?, error_message = ?, purge_ok = ?, purge_failed = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status),
		run.Committed,
		run.CommitMessage,
		run.ErrorMessage,
		run.PurgeOK,
		run.PurgeFailed,
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return expectAffected(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "status" (string), "trigger" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if trigger, ok := criteria["trigger"].(string); ok && trigger != "" {
		query += " AND trigger_kind = ?"
		args = append(args, trigger)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Recent returns the n most recent runs
func (r *RunRepository) Recent(n int) ([]*models.Run, error) {
	return r.List(map[string]any{"limit": n})
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scan(row scanner) (*models.Run, error) {
	var (
		id            string
		sequence      int
		trigger       string
		force         bool
		status        string
		committed     bool
		commitMessage sql.NullString
		errorMessage  sql.NullString
		purgeOK       int
		purgeFailed   int
		startedAt     sql.NullTime
		completedAt   sql.NullTime
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(&id, &sequence, &trigger, &force, &status, &committed, &commitMessage, &errorMessage,
		&purgeOK, &purgeFailed, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.RestoreRun(id, sequence, createdAt, updatedAt, timePtr(deletedAt))
	run.Trigger = trigger
	run.ForceUpdate = force
	run.Status = models.RunStatus(status)
	run.Committed = committed
	run.CommitMessage = commitMessage.String
	run.ErrorMessage = errorMessage.String
	run.PurgeOK = purgeOK
	run.PurgeFailed = purgeFailed
	run.StartedAt = timePtr(startedAt)
	run.CompletedAt = timePtr(completedAt)

	return run, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
