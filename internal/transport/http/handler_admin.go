package httptransport

import (
	"encoding/json"
	"net/http"

	appsession "duel-session/internal/app/session"
	"duel-session/internal/store"

	"github.com/go-chi/chi/v5"
)

type AdminHandlers struct {
	store      *store.Store
	sessionSvc *appsession.Service
}

func NewAdminHandlers(st *store.Store, sessionSvc *appsession.Service) *AdminHandlers {
	return &AdminHandlers{store: st, sessionSvc: sessionSvc}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if h.store == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "disabled"})
			return
		}
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) Sessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := h.sessionSvc.List()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "total": len(items)})
	}
}

func (h *AdminHandlers) CloseSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Reason string `json:"reason"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
				return
			}
		}
		if err := h.sessionSvc.Close(chi.URLParam(r, "code"), body.Reason); err != nil {
			writeSessionError(w, err)
			return
		}
		metricAdminCloseTotal.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) DeclareWinner() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ParticipantID string `json:"participant_id"`
			Reason        string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		view, err := h.sessionSvc.DeclareWinner(chi.URLParam(r, "code"), body.ParticipantID, body.Reason)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		metricAdminWinnerTotal.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}
