package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	apppublic "duel-session/internal/app/public"

	"github.com/go-chi/chi/v5"
)

type ProfileHandlers struct {
	publicSvc *apppublic.Service
}

func NewProfileHandlers(publicSvc *apppublic.Service) *ProfileHandlers {
	return &ProfileHandlers{publicSvc: publicSvc}
}

func (h *ProfileHandlers) Profile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricProfileQueryTotal.Add(1)
		resp, err := h.publicSvc.Profile(r.Context(), chi.URLParam(r, "wallet_id"))
		if err != nil {
			metricProfileQueryErrors.Add(1)
			writeProfileError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *ProfileHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricProfileQueryTotal.Add(1)
		limit, offset := ParsePagination(r, 20, 100)
		resp, err := h.publicSvc.Leaderboard(r.Context(), r.URL.Query().Get("sort"), limit, offset)
		if err != nil {
			metricProfileQueryErrors.Add(1)
			writeProfileError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apppublic.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, apppublic.ErrProfileNotFound):
		WriteHTTPError(w, http.StatusNotFound, "profile_not_found")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
