package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rewear-api/internal/application/swap"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/transport/http/middleware"
)

// SwapHandler handles swap lifecycle endpoints.
type SwapHandler struct {
	svc swap.Service
}

func NewSwapHandler(svc swap.Service) *SwapHandler { return &SwapHandler{svc: svc} }

func (h *SwapHandler) Propose(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ProposeSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sw, err := h.svc.Propose(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sw)
}

func (h *SwapHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var (
		swaps []domain.Swap
		err   error
	)
	switch r.URL.Query().Get("direction") {
	case "incoming":
		swaps, err = h.svc.ListIncoming(r.Context(), claims.UserID)
	case "outgoing":
		swaps, err = h.svc.ListOutgoing(r.Context(), claims.UserID)
	default:
		swaps, err = h.svc.ListForUser(r.Context(), claims.UserID)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

func (h *SwapHandler) Get(w http.ResponseWriter, r *http.Request) {
	sw, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

func (h *SwapHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Accept)
}

func (h *SwapHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reject)
}

func (h *SwapHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *SwapHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

// ItemDetails returns the swaps an item is involved in.
func (h *SwapHandler) ItemDetails(w http.ResponseWriter, r *http.Request) {
	swaps, err := h.svc.GetItemSwapDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

type transitionFunc func(ctx context.Context, swapID, actorID string) (*domain.Swap, error)

func (h *SwapHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sw, err := fn(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}
