package playlist

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/plstat/internal/models"
)

const (
	headerTag = "#EXTM3U"
	extinfTag = "#EXTINF:"

	// LiveDuration marks entries without a finite declared length.
	LiveDuration = -1
)

// ParseFile reads and parses the playlist at path. The returned playlist carries the file size and content hash.
func ParseFile(path, name string) (*models.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	return FromBytes(name, data)
}

// FromBytes parses data read from the playlist called name.
func FromBytes(name string, data []byte) (*models.Playlist, error) {
	pl, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	pl.Path = name
	pl.Size = int64(len(data))
	pl.Hash = Hash(data)
	return pl, nil
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse reads playlist entries from r.
func Parse(r io.Reader) (*models.Playlist, error) {
	pl := &models.Playlist{Entries: []models.Entry{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending *models.Entry
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
			if strings.HasPrefix(line, headerTag) {
				pl.Extended = true
				continue
			}
		}

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, extinfTag):
			entry := parseExtinf(strings.TrimPrefix(line, extinfTag))
			pending = &entry
		case strings.HasPrefix(line, "#"):
			continue
		default:
			if pending == nil {
				pl.Entries = append(pl.Entries, models.Entry{Title: line, URL: line, Duration: LiveDuration})
				continue
			}
			pending.URL = line
			pl.Entries = append(pl.Entries, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	return pl, nil
}

// parseExtinf splits `<duration> attrs...,<title>` into an entry without URL.
func parseExtinf(s string) models.Entry {
	header, title := splitTitle(s)
	entry := models.Entry{Title: strings.TrimSpace(title), Duration: LiveDuration}

	fields := strings.TrimSpace(header)
	durEnd := strings.IndexAny(fields, " \t")
	durText := fields
	if durEnd >= 0 {
		durText = fields[:durEnd]
		fields = fields[durEnd+1:]
	} else {
		fields = ""
	}
	if d, err := strconv.ParseFloat(durText, 64); err == nil && d >= 0 {
		entry.Duration = int(d)
	}

	if attrs := parseAttributes(fields); len(attrs) > 0 {
		entry.Attributes = attrs
	}
	return entry
}

// splitTitle cuts s at the first comma outside double quotes.
func splitTitle(s string) (string, string) {
	quoted := false
	for i, r := range s {
		switch r {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}

// parseAttributes reads key="value" and key=value pairs separated by whitespace.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for {
		s = strings.TrimLeft(s, " \t")
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return attrs
		}
		// Bare words before the key belong to an unquoted value that ran past a space.
		words := strings.Fields(s[:eq])
		if len(words) == 0 {
			return attrs
		}
		key := strings.ToLower(words[len(words)-1])
		s = s[eq+1:]

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				value, s = s[1:], ""
			} else {
				value, s = s[1:end+1], s[end+2:]
			}
		} else {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				value, s = s, ""
			} else {
				value, s = s[:end], s[end:]
			}
		}
		attrs[key] = value
	}
}
