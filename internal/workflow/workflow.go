// Package workflow renders and checks the GitHub Actions definition that runs the statistics pipeline.
//
// The rendered document triggers on pushes touching playlist files outside the stats directory and on manual
// dispatch with a boolean force_update input. Its single job checks out two commits and runs the pipeline with go run.
package workflow

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/plstat/internal/shared"
)

const (
	CheckoutAction = "actions/checkout@v4"
	SetupGoAction  = "actions/setup-go@v5"
	ForceInput     = "force_update"
	JobName        = "update-stats"
	header         = "# Generated by `plstat workflow`. Edit config.toml and re-render instead of editing by hand.\n"
)

// Workflow is the subset of the GitHub Actions schema plstat writes.
type Workflow struct {
	Name        string            `yaml:"name"`
	On          Triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Jobs        map[string]Job    `yaml:"jobs"`
}

// Triggers lists the events a workflow reacts to.
type Triggers struct {
	Push             *PushTrigger     `yaml:"push,omitempty"`
	WorkflowDispatch *DispatchTrigger `yaml:"workflow_dispatch,omitempty"`
}

// PushTrigger carries Branches only so [Workflow.Validate] can reject a hand-added branch filter.
type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
}

type DispatchTrigger struct {
	Inputs map[string]Input `yaml:"inputs,omitempty"`
}

// Input is a workflow_dispatch input. Default is kept untyped so booleans render unquoted.
type Input struct {
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Default     any    `yaml:"default"`
}

type Job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []Step `yaml:"steps"`
}

type Step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]any    `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// Options configures [Build].
type Options struct {
	Name        string
	Paths       []string
	IgnorePaths []string
	RunsOn      string
	GoVersion   string
	Package     string
	TokenEnv    string
}

// OptionsFromConfig derives workflow options from the loaded configuration.
func OptionsFromConfig(cfg *shared.Config) Options {
	return Options{
		Paths:       cfg.Trigger.Paths,
		IgnorePaths: cfg.Trigger.IgnorePaths,
		TokenEnv:    cfg.Repository.TokenEnv,
	}
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "Update media statistics"
	}
	if o.RunsOn == "" {
		o.RunsOn = "ubuntu-latest"
	}
	if o.GoVersion == "" {
		o.GoVersion = "stable"
	}
	if o.Package == "" {
		o.Package = "github.com/desertthunder/plstat/cmd@latest"
	}
	if o.TokenEnv == "" {
		o.TokenEnv = "GITHUB_TOKEN"
	}
	if len(o.Paths) == 0 {
		o.Paths = []string{"**.m3u"}
	}
	return o
}

// Build assembles the workflow document.
func Build(opts Options) *Workflow {
	opts = opts.withDefaults()

	paths := make([]string, 0, len(opts.Paths)+len(opts.IgnorePaths))
	paths = append(paths, opts.Paths...)
	for _, p := range opts.IgnorePaths {
		paths = append(paths, "!"+strings.TrimPrefix(p, "!"))
	}

	steps := []Step{
		{Name: "Checkout", Uses: CheckoutAction, With: map[string]any{"fetch-depth": 2}},
		{Name: "Set up Go", Uses: SetupGoAction, With: map[string]any{"go-version": opts.GoVersion}},
		{
			Name: "Update statistics",
			Run:  "go run " + opts.Package + " run",
			Env:  map[string]string{opts.TokenEnv: "${{ secrets.GITHUB_TOKEN }}"},
		},
	}

	return &Workflow{
		Name: opts.Name,
		On: Triggers{
			Push: &PushTrigger{Paths: paths},
			WorkflowDispatch: &DispatchTrigger{Inputs: map[string]Input{
				ForceInput: {
					Description: "Recompute statistics for every playlist",
					Type:        "boolean",
					Default:     false,
				},
			}},
		},
		Permissions: map[string]string{"contents": "write"},
		Jobs:        map[string]Job{JobName: {RunsOn: opts.RunsOn, Steps: steps}},
	}
}

// Render builds and encodes the workflow as YAML with a generated-file header.
func Render(opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Build(opts)); err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a workflow document.
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: failed to parse workflow: %v", shared.ErrInvalidInput, err)
	}
	return &w, nil
}

// Load reads and parses the workflow at path.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	return Parse(data)
}

// Validate reports the first way w fails to run the pipeline as intended.
func (w *Workflow) Validate() error {
	if w.On.Push == nil || len(w.On.Push.Paths) == 0 {
		return fmt.Errorf("%w: push trigger has no path filter", shared.ErrInvalidConfig)
	}
	if len(w.On.Push.Branches) > 0 {
		return fmt.Errorf("%w: push trigger must not filter branches", shared.ErrInvalidConfig)
	}
	if w.On.WorkflowDispatch == nil {
		return fmt.Errorf("%w: workflow_dispatch trigger missing", shared.ErrInvalidConfig)
	}
	in, ok := w.On.WorkflowDispatch.Inputs[ForceInput]
	if !ok || in.Type != "boolean" {
		return fmt.Errorf("%w: %s must be a boolean dispatch input", shared.ErrInvalidConfig, ForceInput)
	}
	if b, ok := in.Default.(bool); !ok || b {
		return fmt.Errorf("%w: %s must default to false", shared.ErrInvalidConfig, ForceInput)
	}
	if len(w.Jobs) != 1 {
		return fmt.Errorf("%w: expected a single job, found %d", shared.ErrInvalidConfig, len(w.Jobs))
	}
	for name, job := range w.Jobs {
		if depth := checkoutDepth(job); depth != 2 {
			return fmt.Errorf("%w: job %s must check out with fetch-depth 2, found %d", shared.ErrInvalidConfig, name, depth)
		}
	}
	return nil
}

func checkoutDepth(job Job) int {
	for _, s := range job.Steps {
		if !strings.HasPrefix(s.Uses, "actions/checkout@") {
			continue
		}
		switch v := s.With["fetch-depth"].(type) {
		case int:
			return v
		case string:
			var n int
			fmt.Sscanf(v, "%d", &n)
			return n
		}
		return 1
	}
	return 0
}

// Check compares the file at path with a fresh rendering. It returns false when the file is missing or differs.
func Check(path string, opts Options) (bool, error) {
	want, err := Render(opts)
	if err != nil {
		return false, err
	}
	got, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read workflow: %w", err)
	}
	return bytes.Equal(got, want), nil
}
