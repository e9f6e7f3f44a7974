package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a pipeline [Run].
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSkipped   RunStatus = "skipped"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunSkipped, RunSucceeded, RunFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunSkipped || s == RunSucceeded || s == RunFailed
}

// Run records one pipeline execution.
type Run struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time

	Trigger       string
	ForceUpdate   bool
	Status        RunStatus
	Committed     bool
	CommitMessage string
	ErrorMessage  string
	PurgeOK       int
	PurgeFailed   int
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// NewRun creates a pending run for the given trigger kind.
func NewRun(trigger string, force bool) *Run {
	now := time.Now().UTC()
	return &Run{
		createdAt:   now,
		updatedAt:   now,
		Trigger:     trigger,
		ForceUpdate: force,
		Status:      RunPending,
	}
}

// RestoreRun rebuilds a run from stored columns.
func RestoreRun(id string, sequence int, createdAt, updatedAt time.Time, deletedAt *time.Time) *Run {
	return &Run{id: id, sequence: sequence, createdAt: createdAt, updatedAt: updatedAt, deletedAt: deletedAt}
}

func (r *Run) ID() string            { return r.id }
func (r *Run) Sequence() int         { return r.sequence }
func (r *Run) CreatedAt() time.Time  { return r.createdAt }
func (r *Run) UpdatedAt() time.Time  { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time { return r.deletedAt }

func (r *Run) SetID(id string)           { r.id = id }
func (r *Run) SetSequence(seq int)       { r.sequence = seq }
func (r *Run) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// Start marks the run as running.
func (r *Run) Start() {
	now := time.Now().UTC()
	r.Status = RunRunning
	r.StartedAt = &now
}

// Finish moves the run to a terminal status, recording err when non-nil.
func (r *Run) Finish(status RunStatus, err error) {
	now := time.Now().UTC()
	r.Status = status
	r.CompletedAt = &now
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Duration returns the elapsed run time, zero until both timestamps are set.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// Validate checks the run's fields.
func (r *Run) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.Trigger == "" {
		return fmt.Errorf("run trigger is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if r.PurgeOK < 0 || r.PurgeFailed < 0 {
		return fmt.Errorf("purge counters must not be negative")
	}
	return nil
}
