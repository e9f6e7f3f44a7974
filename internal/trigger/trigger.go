package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names the repository event that started a run.
type Kind string

const (
	Push     Kind = "push"
	Dispatch Kind = "workflow_dispatch"
)

// ParseKind maps an event name to a [Kind]. "dispatch" and "manual" are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "push":
		return Push, nil
	case "workflow_dispatch", "dispatch", "manual":
		return Dispatch, nil
	default:
		return "", fmt.Errorf("unsupported event %q", name)
	}
}

// Inputs holds manual dispatch inputs.
type Inputs struct {
	ForceUpdate bool
}

// Event describes what happened in the repository.
type Event struct {
	Kind         Kind
	ChangedFiles []string
	Inputs       Inputs
}

// Decision is the evaluator's verdict for an [Event].
type Decision struct {
	Run         bool
	ForceUpdate bool
	Reason      string
	Matched     []string
}

// Evaluator applies a [PathFilter] to events.
type Evaluator struct {
	filter *PathFilter
}

// NewEvaluator compiles the include and exclude patterns into an evaluator.
func NewEvaluator(include, exclude []string) (*Evaluator, error) {
	f, err := NewPathFilter(include, exclude)
	if err != nil {
		return nil, err
	}
	return &Evaluator{filter: f}, nil
}

// Filter exposes the compiled path filter.
func (e *Evaluator) Filter() *PathFilter { return e.filter }

// Evaluate decides whether ev starts the pipeline.
func (e *Evaluator) Evaluate(ev Event) Decision {
	switch ev.Kind {
	case Dispatch:
		return Decision{
			Run:         true,
			ForceUpdate: ev.Inputs.ForceUpdate,
			Reason:      fmt.Sprintf("manual dispatch (force_update=%t)", ev.Inputs.ForceUpdate),
		}
	case Push:
		matched := e.filter.Filter(ev.ChangedFiles)
		if len(matched) == 0 {
			return Decision{Reason: fmt.Sprintf("push changed %d file(s), none match the playlist filter", len(ev.ChangedFiles))}
		}
		return Decision{
			Run:     true,
			Matched: matched,
			Reason:  fmt.Sprintf("push changed %d playlist file(s)", len(matched)),
		}
	default:
		return Decision{Reason: fmt.Sprintf("event %q does not trigger the pipeline", ev.Kind)}
	}
}

// ForceFlag renders the updater argument for d.
func ForceFlag(d Decision) string {
	return "--force-update=" + strconv.FormatBool(d.ForceUpdate)
}
