package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-community-notifier/internal/application/pushtoken"
	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/transport/http/middleware"
)

// PushTokenHandler handles device push token registration.
type PushTokenHandler struct {
	svc pushtoken.Service
}

func NewPushTokenHandler(svc pushtoken.Service) *PushTokenHandler {
	return &PushTokenHandler{svc: svc}
}

func (h *PushTokenHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tokens, err := h.svc.TokensFor(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	if tokens == nil {
		tokens = []domain.PushToken{}
	}
	writeJSON(w, http.StatusOK, PushTokensEnvelope{Data: tokens})
}

func (h *PushTokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterPushTokenRequest
	if !decode(w, r, &req) {
		return
	}
	pt, err := h.svc.Register(r.Context(), claims.UserID, req.Token, domain.ParsePlatform(req.Platform))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pt)
}

func (h *PushTokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil || token == "" {
		writeError(w, http.StatusBadRequest, "invalid token")
		return
	}
	if err := h.svc.Remove(r.Context(), token, claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "push token removed"})
}
