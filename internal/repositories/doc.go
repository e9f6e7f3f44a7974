// Package repositories implements SQLite persistence for pipeline runs and playlist snapshots.
//
// Key Implementations:
//   - [RunRepository] : pipeline run history with status filtering and soft deletes
//   - [SnapshotRepository] : per-playlist counters recorded by the statistics updater
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
