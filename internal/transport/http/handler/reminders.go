package handler

import (
	"context"
	"net/http"

	"github.com/go-community-notifier/internal/application/reminder"
)

type ReminderRunner interface {
	RunCycle(ctx context.Context) reminder.CycleReport
}

type ReminderHandler struct {
	runner ReminderRunner
}

func NewReminderHandler(runner ReminderRunner) *ReminderHandler {
	return &ReminderHandler{runner: runner}
}

// Run executes one reminder cycle now. A cycle already in progress yields 409.
func (h *ReminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	report := h.runner.RunCycle(r.Context())
	if report.Skipped {
		writeJSON(w, http.StatusConflict, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
