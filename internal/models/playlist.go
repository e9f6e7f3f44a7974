package models

import "time"

// Entry is one media entry of an extended M3U playlist.
type Entry struct {
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Duration   int               `json:"duration"` // Declared seconds, -1 for live streams
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Group returns the entry's group-title attribute.
func (e Entry) Group() string { return e.Attributes["group-title"] }

// Playlist is a parsed playlist file.
type Playlist struct {
	Path     string  `json:"path"`
	Extended bool    `json:"extended"` // File starts with #EXTM3U
	Entries  []Entry `json:"entries"`
	Size     int64   `json:"size"`
	Hash     string  `json:"hash"`
}

// PlaylistStats contains computed statistics for a single playlist file.
type PlaylistStats struct {
	Path          string         `json:"path"`
	Entries       int            `json:"entries"`
	UniqueURLs    int            `json:"unique_urls"`
	Duplicates    int            `json:"duplicates"`
	Groups        map[string]int `json:"groups"`
	WithTVGID     int            `json:"with_tvg_id"`
	WithLogo      int            `json:"with_logo"`
	LiveEntries   int            `json:"live_entries"`
	TotalDuration int            `json:"total_duration"`
	SizeBytes     int64          `json:"size_bytes"`
	Hash          string         `json:"hash"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Summary aggregates statistics for every playlist in a repository.
type Summary struct {
	Playlists    []PlaylistStats `json:"playlists"`
	TotalEntries int             `json:"total_entries"`
	TotalSize    int64           `json:"total_size"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Find returns the stats for path, if present.
func (s *Summary) Find(path string) (PlaylistStats, bool) {
	if s == nil {
		return PlaylistStats{}, false
	}
	for _, p := range s.Playlists {
		if p.Path == path {
			return p, true
		}
	}
	return PlaylistStats{}, false
}
