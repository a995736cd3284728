package handler

import (
	"context"
	"net/http"

	"github.com/go-community-notifier/internal/domain"
)

// Dispatcher is the fan-out entry point other services trigger over HTTP.
type Dispatcher interface {
	Dispatch(ctx context.Context, category domain.Category, recipients []string, payload domain.Payload) (domain.DispatchResult, error)
}

type DispatchHandler struct {
	d Dispatcher
}

func NewDispatchHandler(d Dispatcher) *DispatchHandler {
	return &DispatchHandler{d: d}
}

// Dispatch responds once every record is written and every push attempt has finished.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req domain.DispatchRequest
	if !decode(w, r, &req) {
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		httpError(w, err)
		return
	}
	res, err := h.d.Dispatch(r.Context(), category, req.Recipients, req.Payload)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
