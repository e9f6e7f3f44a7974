package playlist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plstat/internal/models"
)

const sample = `#EXTM3U x-tvg-url="https://epg.example/guide.xml"
#EXTINF:-1 tvg-id="news.one" tvg-logo="https://img/1.png" group-title="News",News One
https://streams.example/news1.m3u8
#EXTVLCOPT:http-user-agent=Mozilla
#EXTINF:-1 tvg-id="" group-title="News;Sports",Sports, Live
https://streams.example/sports.m3u8

#EXTINF:215,Some Clip
https://streams.example/clip.mp4
#EXTINF:-1 group-title="News",News One Backup
https://streams.example/news1.m3u8
`

func TestParse(t *testing.T) {
	t.Run("extended playlist", func(t *testing.T) {
		pl, err := Parse(strings.NewReader(sample))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if !pl.Extended {
			t.Error("expected extended playlist")
		}
		if len(pl.Entries) != 4 {
			t.Fatalf("expected 4 entries, got %d", len(pl.Entries))
		}

		first := pl.Entries[0]
		if first.Title != "News One" || first.URL != "https://streams.example/news1.m3u8" {
			t.Errorf("unexpected first entry %+v", first)
		}
		if first.Duration != LiveDuration {
			t.Errorf("expected live duration, got %d", first.Duration)
		}
		if first.Attributes["tvg-logo"] != "https://img/1.png" {
			t.Errorf("unexpected attributes %v", first.Attributes)
		}

		if pl.Entries[1].Title != "Sports, Live" {
			t.Errorf("title with comma should be preserved, got %q", pl.Entries[1].Title)
		}
		if pl.Entries[2].Duration != 215 {
			t.Errorf("expected 215 seconds, got %d", pl.Entries[2].Duration)
		}
	})

	t.Run("plain playlist", func(t *testing.T) {
		pl, err := Parse(strings.NewReader("\ufeffhttp://a/1\n\nhttp://a/2\n"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if pl.Extended {
			t.Error("plain playlist should not be extended")
		}
		if len(pl.Entries) != 2 || pl.Entries[0].URL != "http://a/1" {
			t.Errorf("unexpected entries %+v", pl.Entries)
		}
	})

	t.Run("group survives an unquoted value with a space", func(t *testing.T) {
		pl, err := Parse(strings.NewReader("#EXTM3U\n#EXTINF:-1 tvg-name=Foo Bar group-title=\"News\",Title\nhttp://a/1\n"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(pl.Entries) != 1 || pl.Entries[0].Attributes["group-title"] != "News" {
			t.Errorf("expected group-title News, got %+v", pl.Entries)
		}
	})

	t.Run("dangling EXTINF is dropped", func(t *testing.T) {
		pl, err := Parse(strings.NewReader("#EXTM3U\n#EXTINF:-1,Orphan\n"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(pl.Entries) != 0 {
			t.Errorf("expected no entries, got %d", len(pl.Entries))
		}
	})
}

func TestParseAttributes(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want map[string]string
	}{
		{name: "quoted", in: `tvg-id="a.b" group-title="News"`, want: map[string]string{"tvg-id": "a.b", "group-title": "News"}},
		{name: "unquoted", in: `tvg-chno=5 radio=true`, want: map[string]string{"tvg-chno": "5", "radio": "true"}},
		{name: "mixed case keys", in: `TVG-ID="X"`, want: map[string]string{"tvg-id": "X"}},
		{name: "unterminated quote", in: `tvg-name="open`, want: map[string]string{"tvg-name": "open"}},
		{name: "unquoted value with space", in: `tvg-name=Foo Bar group-title="News"`, want: map[string]string{"tvg-name": "Foo", "group-title": "News"}},
		{name: "empty", in: "", want: map[string]string{}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseAttributes(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseAttributes(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	pl, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	pl.Path = "tv/index.m3u"

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stats := Compute(pl, now)

	if stats.Entries != 4 {
		t.Errorf("expected 4 entries, got %d", stats.Entries)
	}
	if stats.Duplicates != 1 || stats.UniqueURLs != 3 {
		t.Errorf("expected 1 duplicate and 3 unique, got %d/%d", stats.Duplicates, stats.UniqueURLs)
	}
	want := map[string]int{"News": 3, "Sports": 1, UngroupedName: 1}
	if !reflect.DeepEqual(stats.Groups, want) {
		t.Errorf("groups = %v, want %v", stats.Groups, want)
	}
	if stats.WithTVGID != 1 || stats.WithLogo != 1 {
		t.Errorf("unexpected tvg counters %d/%d", stats.WithTVGID, stats.WithLogo)
	}
	if stats.LiveEntries != 3 || stats.TotalDuration != 215 {
		t.Errorf("unexpected durations live=%d total=%d", stats.LiveEntries, stats.TotalDuration)
	}
	if !stats.UpdatedAt.Equal(now) {
		t.Errorf("unexpected timestamp %v", stats.UpdatedAt)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.m3u")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	pl, err := ParseFile(path, "a.m3u")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if pl.Path != "a.m3u" || pl.Size != int64(len(sample)) {
		t.Errorf("unexpected metadata %s %d", pl.Path, pl.Size)
	}
	if pl.Hash != Hash([]byte(sample)) || len(pl.Hash) != 64 {
		t.Errorf("unexpected hash %s", pl.Hash)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.m3u"), "missing.m3u"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSummarizeAndTopGroups(t *testing.T) {
	stats := []models.PlaylistStats{
		{Path: "b.m3u", Entries: 2, SizeBytes: 10},
		{Path: "a.m3u", Entries: 3, SizeBytes: 5},
	}
	summary := Summarize(stats, time.Now())
	if summary.Playlists[0].Path != "a.m3u" {
		t.Errorf("expected sorted playlists")
	}
	if summary.TotalEntries != 5 || summary.TotalSize != 15 {
		t.Errorf("unexpected totals %d/%d", summary.TotalEntries, summary.TotalSize)
	}
	if stats[0].Path != "b.m3u" {
		t.Error("Summarize must not reorder its input")
	}

	top := TopGroups(map[string]int{"a": 1, "b": 3, "c": 3}, 2)
	if !reflect.DeepEqual(top, []string{"b", "c"}) {
		t.Errorf("TopGroups() = %v", top)
	}
}
