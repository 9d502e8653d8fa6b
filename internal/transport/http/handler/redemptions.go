package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rewear-api/internal/application/redemption"
	"github.com/rewear-api/internal/transport/http/middleware"
)

// RedemptionHandler handles point redemption endpoints.
type RedemptionHandler struct {
	svc redemption.Service
}

func NewRedemptionHandler(svc redemption.Service) *RedemptionHandler {
	return &RedemptionHandler{svc: svc}
}

func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	red, err := h.svc.Redeem(r.Context(), claims.UserID, req.ItemID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, red)
}

func (h *RedemptionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	redemptions, err := h.svc.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptions)
}

func (h *RedemptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	red, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

func (h *RedemptionHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	red, err := h.svc.MarkShipped(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

func (h *RedemptionHandler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	red, err := h.svc.MarkReceived(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

func (h *RedemptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	red, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// ItemDetails returns the open redemptions of an item.
func (h *RedemptionHandler) ItemDetails(w http.ResponseWriter, r *http.Request) {
	redemptions, err := h.svc.GetItemRedemptionDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptions)
}
