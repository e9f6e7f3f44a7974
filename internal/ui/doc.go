// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the statistics summary and can start a pipeline run:
//  1. [SummaryView] : Filterable list of playlists with entry counts and sizes
//  2. [DetailView] : Counters and the largest groups of one playlist
//  3. [ConfirmView] : Confirm a manual run, optionally forced
//  4. [RunView] : Pipeline progress as it streams in
//  5. [ResultView] : Commit and cache purge outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the pipeline engine; each update schedules the next read, and the
// completion message arrives once the channel closes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
