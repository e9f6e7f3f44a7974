package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/plstat/internal/shared"
)

// sequenceTables are the entities with a `<table>_sequence` counter row.
var sequenceTables = map[string]bool{"runs": true}

// NextSequence increments the counter for table and returns the new value.
//
// Run numbers give history output a stable ordering (run #42) independent of UUIDs.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("%w: no sequence for %q", shared.ErrInvalidArgument, table)
	}

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
