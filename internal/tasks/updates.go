package tasks

import (
	"fmt"

	"github.com/desertthunder/plstat/internal/services"
	"github.com/desertthunder/plstat/internal/trigger"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Evaluate Phase = iota
	Lock
	Checkout
	Update
	Publish
	Wait
	Purge
	Persist
	Done
	ScanPlaylists
	ParsePlaylist
	WriteStats
)

func (p Phase) String() string {
	switch p {
	case Evaluate:
		return "evaluate"
	case Lock:
		return "lock"
	case Checkout:
		return "checkout"
	case Update:
		return "update"
	case Publish:
		return "publish"
	case Wait:
		return "wait"
	case Purge:
		return "purge"
	case Persist:
		return "persist"
	case Done:
		return "done"
	case ScanPlaylists:
		return "scan_playlists"
	case ParsePlaylist:
		return "parse_playlist"
	case WriteStats:
		return "write_stats"
	default:
		return ""
	}
}

// pipelineSteps is the number of steps reported for a run that executes.
const pipelineSteps = 5

func evaluateUpdate(d trigger.Decision) ProgressUpdate {
	msg := "Trigger matched: " + d.Reason
	if !d.Run {
		msg = "Skipping: " + d.Reason
	}
	return ProgressUpdate{Phase: Evaluate, Step: 0, Total: pipelineSteps, Message: msg, Data: d}
}

func lockUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Lock, Step: 0, Total: pipelineSteps, Message: "Locked working tree"}
}

func checkoutUpdate(branch string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Checkout,
		Step:    1,
		Total:   pipelineSteps,
		Message: fmt.Sprintf("Checking out %s (depth %d)...", branch, services.CheckoutDepth),
	}
}

func updaterUpdate(force bool) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Update,
		Step:    2,
		Total:   pipelineSteps,
		Message: fmt.Sprintf("Updating statistics (%s)...", services.ForceUpdateArg(force)),
	}
}

func publishUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Publish, Step: 3, Total: pipelineSteps, Message: "Publishing statistics..."}
}

func publishedUpdate(res *services.PublishResult) ProgressUpdate {
	msg := "Nothing to commit, pushed"
	if res.Committed {
		msg = fmt.Sprintf("Committed %q and pushed", res.Message)
	}
	return ProgressUpdate{Phase: Publish, Step: 3, Total: pipelineSteps, Message: msg, Data: res}
}

func waitUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Wait, Step: 4, Total: pipelineSteps, Message: "Waiting before cache purge..."}
}

func purgeUpdate(results []services.PurgeResult) ProgressUpdate {
	ok, failed := services.CountPurges(results)
	return ProgressUpdate{
		Phase:   Purge,
		Step:    5,
		Total:   pipelineSteps,
		Message: fmt.Sprintf("Purged %d URLs (%d failed)", ok, failed),
		Data:    results,
	}
}

func doneUpdate(result *RunResult) ProgressUpdate {
	return ProgressUpdate{Phase: Done, Step: pipelineSteps, Total: pipelineSteps, Message: "Pipeline finished", Data: result}
}

func scanUpdate(count int) ProgressUpdate {
	return ProgressUpdate{Phase: ScanPlaylists, Step: 0, Total: count, Message: fmt.Sprintf("Found %d playlists", count)}
}

func parseUpdate(step, total int, path string, reused bool) ProgressUpdate {
	verb := "Parsed"
	if reused {
		verb = "Unchanged"
	}
	return ProgressUpdate{Phase: ParsePlaylist, Step: step, Total: total, Message: fmt.Sprintf("%s %s", verb, path), Data: path}
}

func writeStatsUpdate(written int) ProgressUpdate {
	return ProgressUpdate{Phase: WriteStats, Step: 1, Total: 1, Message: fmt.Sprintf("Wrote %d statistics files", written)}
}
