package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rewear-api/internal/application/points"
	"github.com/rewear-api/internal/transport/http/middleware"
)

// PointsHandler handles balance and ledger endpoints.
type PointsHandler struct {
	svc points.Service
}

func NewPointsHandler(svc points.Service) *PointsHandler { return &PointsHandler{svc: svc} }

func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.svc.Balance(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.svc.History(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Reconcile is the admin audit endpoint: it recomputes a user's balance from
// the ledger and reports drift against the cached value.
func (h *PointsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
