package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/plstat/internal/shared"
)

func TestRender(t *testing.T) {
	t.Run("Round Trips Through Parse", func(t *testing.T) {
		data, err := Render(Options{IgnorePaths: []string{"stats/**"}})
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		w, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if err := w.Validate(); err != nil {
			t.Errorf("rendered workflow should validate: %v", err)
		}

		want := []string{"**.m3u", "!stats/**"}
		if !slices.Equal(w.On.Push.Paths, want) {
			t.Errorf("expected paths %v, got %v", want, w.On.Push.Paths)
		}
	})

	t.Run("Adds No Other Trigger Conditions", func(t *testing.T) {
		data, err := Render(OptionsFromConfig(shared.DefaultConfig()))
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		for _, key := range []string{"branches", "concurrency", "tags", "schedule"} {
			if strings.Contains(string(data), key+":") {
				t.Errorf("expected no %s in rendered workflow:\n%s", key, data)
			}
		}
	})

	t.Run("Starts With Header", func(t *testing.T) {
		data, err := Render(Options{})
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !strings.HasPrefix(string(data), "# Generated by") {
			t.Errorf("expected generated header, got %q", string(data[:40]))
		}
	})

	t.Run("Checkout Fetches Two Commits", func(t *testing.T) {
		w := Build(Options{})
		job := w.Jobs[JobName]
		if got := checkoutDepth(job); got != 2 {
			t.Errorf("expected fetch-depth 2, got %d", got)
		}
		if job.Steps[0].Uses != CheckoutAction {
			t.Errorf("expected checkout first, got %q", job.Steps[0].Uses)
		}
	})

	t.Run("Passes Token To Pipeline Step", func(t *testing.T) {
		w := Build(Options{TokenEnv: "PLAYLIST_TOKEN"})
		steps := w.Jobs[JobName].Steps
		last := steps[len(steps)-1]
		if _, ok := last.Env["PLAYLIST_TOKEN"]; !ok {
			t.Errorf("expected PLAYLIST_TOKEN in env, got %v", last.Env)
		}
		if !strings.HasSuffix(last.Run, " run") {
			t.Errorf("expected run subcommand, got %q", last.Run)
		}
	})

	t.Run("Does Not Double Negate Ignore Paths", func(t *testing.T) {
		w := Build(Options{IgnorePaths: []string{"!stats/**"}})
		if !slices.Contains(w.On.Push.Paths, "!stats/**") {
			t.Errorf("expected !stats/**, got %v", w.On.Push.Paths)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *Workflow)
	}{
		{"missing push paths", func(w *Workflow) { w.On.Push.Paths = nil }},
		{"missing dispatch", func(w *Workflow) { w.On.WorkflowDispatch = nil }},
		{"branch filter", func(w *Workflow) { w.On.Push.Branches = []string{"main"} }},
		{"string force input", func(w *Workflow) {
			w.On.WorkflowDispatch.Inputs[ForceInput] = Input{Type: "string", Default: "false"}
		}},
		{"force defaults true", func(w *Workflow) {
			w.On.WorkflowDispatch.Inputs[ForceInput] = Input{Type: "boolean", Default: true}
		}},
		{"shallow checkout", func(w *Workflow) {
			job := w.Jobs[JobName]
			job.Steps[0].With = map[string]any{"fetch-depth": 1}
			w.Jobs[JobName] = job
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Build(Options{})
			tt.mutate(w)
			if err := w.Validate(); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("Rejects Malformed YAML", func(t *testing.T) {
		_, err := Parse([]byte("jobs: [unclosed"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Reads String Fetch Depth", func(t *testing.T) {
		doc := `
"on":
  push:
    paths: ["**.m3u"]
  workflow_dispatch:
    inputs:
      force_update:
        type: boolean
        default: false
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
        with:
          fetch-depth: "2"
`
		w, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if err := w.Validate(); err != nil {
			t.Errorf("expected valid workflow, got %v", err)
		}
	})
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update-stats.yml")
	opts := Options{IgnorePaths: []string{"stats/**"}}

	t.Run("Missing File Drifts", func(t *testing.T) {
		ok, err := Check(path, opts)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if ok {
			t.Error("expected drift for missing file")
		}
	})

	t.Run("Fresh Render Matches", func(t *testing.T) {
		data, err := Render(opts)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("failed to write workflow: %v", err)
		}

		ok, err := Check(path, opts)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !ok {
			t.Error("expected no drift")
		}
	})

	t.Run("Edited File Drifts", func(t *testing.T) {
		ok, err := Check(path, Options{IgnorePaths: []string{"stats/**", "docs/**"}})
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if ok {
			t.Error("expected drift after option change")
		}
	})
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := shared.DefaultConfig()
	opts := OptionsFromConfig(cfg)

	if !slices.Equal(opts.IgnorePaths, []string{"stats/**"}) {
		t.Errorf("expected stats/** ignored, got %v", opts.IgnorePaths)
	}
	if opts.TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("expected GITHUB_TOKEN, got %s", opts.TokenEnv)
	}
}
