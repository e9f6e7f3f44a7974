package models

import (
	"fmt"
	"time"
)

// Snapshot captures playlist counters at the time the statistics updater ran.
type Snapshot struct {
	id        string
	createdAt time.Time

	RunID      string
	Path       string
	Entries    int
	Groups     int
	Duplicates int
	SizeBytes  int64
	Hash       string
}

// NewSnapshot builds a snapshot from computed stats.
func NewSnapshot(runID string, s PlaylistStats) *Snapshot {
	return &Snapshot{
		createdAt:  time.Now().UTC(),
		RunID:      runID,
		Path:       s.Path,
		Entries:    s.Entries,
		Groups:     len(s.Groups),
		Duplicates: s.Duplicates,
		SizeBytes:  s.SizeBytes,
		Hash:       s.Hash,
	}
}

// RestoreSnapshot rebuilds a snapshot from stored columns.
func RestoreSnapshot(id string, createdAt time.Time) *Snapshot {
	return &Snapshot{id: id, createdAt: createdAt}
}

func (s *Snapshot) ID() string           { return s.id }
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt equals CreatedAt; snapshots are immutable.
func (s *Snapshot) UpdatedAt() time.Time { return s.createdAt }

func (s *Snapshot) SetID(id string) { s.id = id }

// Validate checks the snapshot's fields.
func (s *Snapshot) Validate() error {
	if s.id == "" {
		return fmt.Errorf("snapshot ID is required")
	}
	if s.Path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	if s.Hash == "" {
		return fmt.Errorf("snapshot hash is required")
	}
	if s.Entries < 0 || s.Groups < 0 || s.Duplicates < 0 || s.SizeBytes < 0 {
		return fmt.Errorf("snapshot counters must not be negative")
	}
	return nil
}
