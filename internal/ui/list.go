package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/plstat/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.PlaylistStats] to implement [list.Item].
type playlistItem struct {
	stats models.PlaylistStats
}

func (i playlistItem) FilterValue() string { return i.stats.Path }
func (i playlistItem) Title() string       { return i.stats.Path }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%s entries • %d groups • %s", humanize.Comma(int64(i.stats.Entries)), len(i.stats.Groups), humanize.Bytes(uint64(i.stats.SizeBytes)))
	if i.stats.Duplicates > 0 {
		desc = fmt.Sprintf("%s • %d duplicates", desc, i.stats.Duplicates)
	}
	return desc
}

func playlistItems(summary *models.Summary) []list.Item {
	if summary == nil {
		return nil
	}
	items := make([]list.Item, len(summary.Playlists))
	for i, p := range summary.Playlists {
		items[i] = playlistItem{stats: p}
	}
	return items
}
