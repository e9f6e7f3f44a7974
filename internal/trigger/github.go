package trigger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/plstat/internal/shared"
)

// pushPayload is the subset of a GitHub push delivery used to collect changed paths.
type pushPayload struct {
	Commits    []commitPayload `json:"commits"`
	HeadCommit *commitPayload  `json:"head_commit"`
}

type commitPayload struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

type dispatchPayload struct {
	Inputs map[string]json.RawMessage `json:"inputs"`
}

// FromGitHubEnv builds an [Event] from GITHUB_EVENT_NAME and the payload file at GITHUB_EVENT_PATH.
func FromGitHubEnv(getenv func(string) string) (Event, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	name := getenv("GITHUB_EVENT_NAME")
	if name == "" {
		return Event{}, fmt.Errorf("%w: GITHUB_EVENT_NAME is not set", shared.ErrInvalidEvent)
	}

	var payload []byte
	if path := getenv("GITHUB_EVENT_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Event{}, fmt.Errorf("%w: failed to read event payload: %v", shared.ErrInvalidEvent, err)
		}
		payload = data
	}

	return FromPayload(name, payload)
}

// FromPayload decodes a webhook or Actions event payload of the named kind.
func FromPayload(name string, payload []byte) (Event, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", shared.ErrUnknownEvent, err)
	}

	ev := Event{Kind: kind}
	if len(payload) == 0 {
		return ev, nil
	}

	switch kind {
	case Push:
		var p pushPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, fmt.Errorf("%w: bad push payload: %v", shared.ErrInvalidEvent, err)
		}
		ev.ChangedFiles = p.changedFiles()
	case Dispatch:
		var p dispatchPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Event{}, fmt.Errorf("%w: bad dispatch payload: %v", shared.ErrInvalidEvent, err)
		}
		force, err := inputBool(p.Inputs["force_update"])
		if err != nil {
			return Event{}, fmt.Errorf("%w: force_update: %v", shared.ErrInvalidEvent, err)
		}
		ev.Inputs.ForceUpdate = force
	}
	return ev, nil
}

// changedFiles returns the sorted union of every commit's paths.
func (p pushPayload) changedFiles() []string {
	set := make(map[string]struct{})
	add := func(c commitPayload) {
		for _, list := range [][]string{c.Added, c.Removed, c.Modified} {
			for _, f := range list {
				if f = shared.NormalizePath(f); f != "" {
					set[f] = struct{}{}
				}
			}
		}
	}
	for _, c := range p.Commits {
		add(c)
	}
	if p.HeadCommit != nil {
		add(*p.HeadCommit)
	}

	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// inputBool accepts a JSON boolean or a "true"/"false" string; absent means false.
func inputBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("expected boolean, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
