package models

import "time"

// Model is a persisted record. Implemented by [Run] and [Snapshot].
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Store is the append-and-query surface shared by every record kind.
//
// Snapshots are never modified after a run records them, so mutation lives on [MutableStore].
type Store[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	List(criteria map[string]any) ([]T, error)
}

// MutableStore adds in-place updates and soft deletes, used for runs that change status.
type MutableStore[T Model] interface {
	Store[T]
	Update(model T) error
	Delete(id string) error
}
