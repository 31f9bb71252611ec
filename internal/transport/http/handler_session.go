package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appsession "duel-session/internal/app/session"
	"duel-session/internal/match"

	"github.com/go-chi/chi/v5"
)

type SessionHandlers struct {
	sessionSvc *appsession.Service
}

func NewSessionHandlers(sessionSvc *appsession.Service) *SessionHandlers {
	return &SessionHandlers{sessionSvc: sessionSvc}
}

// State returns the replicated view of one live session.
func (h *SessionHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricStateQueryTotal.Add(1)
		view, err := h.sessionSvc.State(chi.URLParam(r, "code"))
		if err != nil {
			metricStateQueryErrors.Add(1)
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appsession.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, appsession.ErrSessionNotFound):
		WriteHTTPError(w, http.StatusNotFound, "session_not_found")
	default:
		status, code := match.MapSessionError(err)
		WriteHTTPError(w, status, code)
	}
}
