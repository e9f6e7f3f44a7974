// Package tasks runs the statistics pipeline with real-time progress reporting.
//
// # Pipeline
//
// [PipelineEngine.Run] takes a [trigger.Event] and:
//
//  1. Evaluates the trigger; a non-matching event is skipped with no side effects
//  2. Takes the working-tree lock
//  3. Checks out the repository (depth 2) when a [Checkouter] is configured
//  4. Runs the [services.Updater] with the decided force flag
//  5. Publishes: stage, commit once if anything changed, always push
//  6. Waits and purges CDN caches; purge outcomes never fail the run
//
// Updater and publisher failures halt the run. Each executed run is recorded
// through the optional [RunStore].
//
// # Built-in Updater
//
// [StatsUpdater] is the in-process statistics updater used when no external
// command is configured. It scans the tree for playlists, parses them on a
// worker pool, and writes one JSON file per playlist plus summary.json and
// README.md. Unless forced, playlists whose content hash is unchanged keep
// their previous statistics so repeated runs produce identical output.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for UI rendering. Updates use select with default so a slow
// consumer never blocks the pipeline.
package tasks
