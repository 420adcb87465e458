// Package handlers provides the HTTP handlers of the watch API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/anstrom/rtspscout/internal/api/middleware"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/report"
	"github.com/anstrom/rtspscout/internal/scheduler"
)

// Watcher is the view of the scheduler the handlers need.
type Watcher interface {
	Latest() (*scheduler.Run, bool)
	LatestReport() (*scheduler.Run, bool)
	NextRun() time.Time
	Trigger() error
	Subscribe(l scheduler.Listener) func()
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// RunView is the JSON form of a discovery run.
type RunView struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Summary    *report.Summary `json:"summary,omitempty"`
}

// NewRunView converts a run for output.
func NewRunView(run *scheduler.Run) RunView {
	view := RunView{
		ID:         run.ID.String(),
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
		DurationMS: run.Duration().Milliseconds(),
	}
	if run.Err != nil {
		view.Error = run.Err.Error()
	}
	if run.Report != nil {
		summary := run.Report.Summary()
		view.Summary = &summary
	}
	return view
}

func writeJSON(w http.ResponseWriter, r *http.Request, logger *logging.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, statusCode int, err error) {
	if statusCode >= http.StatusInternalServerError {
		logger.Error("API error",
			"method", r.Method,
			"path", r.URL.Path,
			"status", statusCode,
			"error", err)
	}

	writeJSON(w, r, logger, statusCode, ErrorResponse{
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	})
}
