package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/shared"
)

var _ models.Store[*models.Snapshot] = (*SnapshotRepository)(nil)

// SnapshotRepository stores playlist snapshots. Snapshots are immutable; there is no update.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a snapshot with a generated ID
func (r *SnapshotRepository) Create(s *models.Snapshot) error {
	s.SetID(shared.GenerateID())
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return insertSnapshot(r.db, s)
}

// CreateMany inserts snapshots in a single transaction
func (r *SnapshotRepository) CreateMany(snapshots []*models.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range snapshots {
		s.SetID(shared.GenerateID())
		if err := s.Validate(); err != nil {
			return fmt.Errorf("validation failed for %s: %w", s.Path, err)
		}
		if err := insertSnapshot(tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertSnapshot(db execer, s *models.Snapshot) error {
	runID := sql.NullString{String: s.RunID, Valid: s.RunID != ""}

	query := `
		INSERT INTO snapshots (id, run_id, path, entries, group_count, duplicates, size_bytes, hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, s.ID(), runID, s.Path, s.Entries, s.Groups, s.Duplicates, s.SizeBytes, s.Hash, s.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by ID
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	query := `
		SELECT id, run_id, path, entries, group_count, duplicates, size_bytes, hash, created_at
		FROM snapshots WHERE id = ?
	`
	s, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", shared.ErrPlaylistNotFound, id)
	}
	return s, err
}

// List retrieves snapshots, newest first.
//
// Supported criteria: "run_id" (string), "path" (string), "limit" (int).
func (r *SnapshotRepository) List(criteria map[string]any) ([]*models.Snapshot, error) {
	query := `
		SELECT id, run_id, path, entries, group_count, duplicates, size_bytes, hash, created_at
		FROM snapshots WHERE 1 = 1
	`
	args := []any{}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if path, ok := criteria["path"].(string); ok && path != "" {
		query += " AND path = ?"
		args = append(args, path)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return snapshots, nil
}

// History returns up to limit snapshots of one playlist, newest first
func (r *SnapshotRepository) History(path string, limit int) ([]*models.Snapshot, error) {
	return r.List(map[string]any{"path": path, "limit": limit})
}

func (r *SnapshotRepository) scan(row scanner) (*models.Snapshot, error) {
	var (
		id        string
		runID     sql.NullString
		createdAt time.Time
		s         models.Snapshot
	)

	err := row.Scan(&id, &runID, &s.Path, &s.Entries, &s.Groups, &s.Duplicates, &s.SizeBytes, &s.Hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	out := models.RestoreSnapshot(id, createdAt)
	out.RunID = runID.String
	out.Path = s.Path
	out.Entries = s.Entries
	out.Groups = s.Groups
	out.Duplicates = s.Duplicates
	out.SizeBytes = s.SizeBytes
	out.Hash = s.Hash
	return out, nil
}
