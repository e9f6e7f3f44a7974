// Package models defines domain entities for the plstat playlist statistics pipeline.
//
// The package contains two categories of types:
//
// 1. Value types describing playlists and their statistics:
//   - [Entry] : A single #EXTINF entry of an extended M3U playlist
//   - [Playlist] : A parsed playlist file with its entries
//   - [PlaylistStats] : Computed statistics written to the stats directory
//   - [Summary] : Collection of [PlaylistStats] for a repository
//
// 2. Persistent entities stored in SQLite:
//   - [Run] : A pipeline execution with trigger, step outcome and purge counts
//   - [Snapshot] : Per-playlist counters captured by the statistics updater
//
// Persistent entities implement [Model]. [Store] and [MutableStore] describe their persistence.
package models
