package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/plstat/internal/models"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunLister returns the most recent runs, newest first.
type RunLister interface {
	Recent(n int) ([]*models.Run, error)
}

// RunView is the JSON shape of a [models.Run].
type RunView struct {
	ID            string     `json:"id"`
	Sequence      int        `json:"sequence"`
	Trigger       string     `json:"trigger"`
	ForceUpdate   bool       `json:"force_update"`
	Status        string     `json:"status"`
	Committed     bool       `json:"committed"`
	CommitMessage string     `json:"commit_message,omitempty"`
	Error         string     `json:"error,omitempty"`
	PurgeOK       int        `json:"purge_ok"`
	PurgeFailed   int        `json:"purge_failed"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DurationMS    int64      `json:"duration_ms"`
}

// NewRunView converts a run for output.
func NewRunView(r *models.Run) RunView {
	return RunView{
		ID:            r.ID(),
		Sequence:      r.Sequence(),
		Trigger:       r.Trigger,
		ForceUpdate:   r.ForceUpdate,
		Status:        string(r.Status),
		Committed:     r.Committed,
		CommitMessage: r.CommitMessage,
		Error:         r.ErrorMessage,
		PurgeOK:       r.PurgeOK,
		PurgeFailed:   r.PurgeFailed,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		DurationMS:    r.Duration().Milliseconds(),
	}
}

// HealthHandler reports liveness and whether a run is in progress.
func HealthHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok", "running": false}
		if d != nil {
			body["running"] = d.Running()
			if last, err := d.Last(); last != nil {
				body["last_skipped"] = last.Skipped
				if err != nil {
					body["last_error"] = err.Error()
				}
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// RunsHandler lists recent runs. The limit query parameter caps the count.
func RunsHandler(runs RunLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			http.Error(w, "Run history not configured", http.StatusServiceUnavailable)
			return
		}

		limit := defaultRunLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRunLimit)
		}

		list, err := runs.Recent(limit)
		if err != nil {
			http.Error(w, "Failed to list runs", http.StatusInternalServerError)
			return
		}

		views := make([]RunView, 0, len(list))
		for _, run := range list {
			views = append(views, NewRunView(run))
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": views})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
