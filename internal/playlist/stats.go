package playlist

import (
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/plstat/internal/models"
)

// UngroupedName labels entries that carry no group-title.
const UngroupedName = "Undefined"

// Compute derives [models.PlaylistStats] from a parsed playlist.
func Compute(pl *models.Playlist, now time.Time) models.PlaylistStats {
	stats := models.PlaylistStats{
		Path:      pl.Path,
		Entries:   len(pl.Entries),
		Groups:    make(map[string]int),
		SizeBytes: pl.Size,
		Hash:      pl.Hash,
		UpdatedAt: now.UTC(),
	}

	seen := make(map[string]struct{}, len(pl.Entries))
	for _, e := range pl.Entries {
		key := strings.TrimSpace(e.URL)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
		} else {
			seen[key] = struct{}{}
		}

		for _, g := range splitGroups(e.Group()) {
			stats.Groups[g]++
		}

		if e.Attributes["tvg-id"] != "" {
			stats.WithTVGID++
		}
		if e.Attributes["tvg-logo"] != "" {
			stats.WithLogo++
		}
		if e.Duration == LiveDuration {
			stats.LiveEntries++
		} else {
			stats.TotalDuration += e.Duration
		}
	}
	stats.UniqueURLs = len(seen)
	return stats
}

// Summarize builds a summary ordered by path.
func Summarize(stats []models.PlaylistStats, now time.Time) *models.Summary {
	sorted := append([]models.PlaylistStats(nil), stats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	summary := &models.Summary{Playlists: sorted, UpdatedAt: now.UTC()}
	for _, s := range sorted {
		summary.TotalEntries += s.Entries
		summary.TotalSize += s.SizeBytes
	}
	return summary
}

// TopGroups returns up to n group names by descending count, ties broken by name.
func TopGroups(groups map[string]int, n int) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if groups[names[i]] != groups[names[j]] {
			return groups[names[i]] > groups[names[j]]
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ";") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return []string{UngroupedName}
	}
	return out
}
