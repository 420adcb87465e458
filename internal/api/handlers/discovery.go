package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/report"
	"github.com/anstrom/rtspscout/internal/scheduler"
)

// ReportResponse is the latest successful run with its report.
type ReportResponse struct {
	Run    RunView     `json:"run"`
	Report report.View `json:"report"`
}

// StatusResponse describes the scheduler state.
type StatusResponse struct {
	LatestRun *RunView   `json:"latest_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// DiscoveryHandler serves discovery results and triggers runs.
type DiscoveryHandler struct {
	watcher Watcher
	logger  *logging.Logger
}

// NewDiscoveryHandler creates a discovery handler.
func NewDiscoveryHandler(watcher Watcher, logger *logging.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		watcher: watcher,
		logger:  logger.WithFields("handler", "discovery"),
	}
}

// GetReport returns the latest successful report, or 404 before the
// first successful run.
func (h *DiscoveryHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	run, ok := h.watcher.LatestReport()
	if !ok {
		writeError(w, r, h.logger, http.StatusNotFound, fmt.Errorf("no discovery report available yet"))
		return
	}

	writeJSON(w, r, h.logger, http.StatusOK, ReportResponse{
		Run:    NewRunView(run),
		Report: run.Report.View(),
	})
}

// TriggerDiscovery starts a run in the background.
func (h *DiscoveryHandler) TriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	err := h.watcher.Trigger()
	switch {
	case err == nil:
		writeJSON(w, r, h.logger, http.StatusAccepted, map[string]any{
			"status":    "accepted",
			"timestamp": time.Now().UTC(),
		})
	case stderrors.Is(err, scheduler.ErrRunInProgress):
		writeError(w, r, h.logger, http.StatusConflict, err)
	case stderrors.Is(err, scheduler.ErrNotRunning):
		writeError(w, r, h.logger, http.StatusServiceUnavailable, err)
	default:
		writeError(w, r, h.logger, http.StatusInternalServerError, err)
	}
}

// GetStatus reports the latest run and the next scheduled one.
func (h *DiscoveryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{Timestamp: time.Now().UTC()}
	if run, ok := h.watcher.Latest(); ok {
		view := NewRunView(run)
		response.LatestRun = &view
	}
	if next := h.watcher.NextRun(); !next.IsZero() {
		next = next.UTC()
		response.NextRun = &next
	}
	writeJSON(w, r, h.logger, http.StatusOK, response)
}
