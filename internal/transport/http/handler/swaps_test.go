package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rewear-api/internal/domain"
	jwtinfra "github.com/rewear-api/internal/infrastructure/jwt"
	"github.com/rewear-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockSwapSvc struct{ mock.Mock }

func (m *mockSwapSvc) Propose(ctx context.Context, proposerID string, req domain.ProposeSwapRequest) (*domain.Swap, error) {
	args := m.Called(ctx, proposerID, req)
	if s, _ := args.Get(0).(*domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapSvc) Accept(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	return m.transition(ctx, swapID, actorID)
}
func (m *mockSwapSvc) Reject(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	return m.transition(ctx, swapID, actorID)
}
func (m *mockSwapSvc) Cancel(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	return m.transition(ctx, swapID, actorID)
}
func (m *mockSwapSvc) Complete(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	return m.transition(ctx, swapID, actorID)
}
func (m *mockSwapSvc) transition(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	args := m.Called(ctx, swapID, actorID)
	if s, _ := args.Get(0).(*domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapSvc) Get(ctx context.Context, swapID string) (*domain.Swap, error) {
	args := m.Called(ctx, swapID)
	if s, _ := args.Get(0).(*domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapSvc) ListForUser(ctx context.Context, userID string) ([]domain.Swap, error) {
	return m.list(ctx, userID)
}
func (m *mockSwapSvc) ListIncoming(ctx context.Context, userID string) ([]domain.Swap, error) {
	return m.list(ctx, userID)
}
func (m *mockSwapSvc) ListOutgoing(ctx context.Context, userID string) ([]domain.Swap, error) {
	return m.list(ctx, userID)
}
func (m *mockSwapSvc) list(ctx context.Context, userID string) ([]domain.Swap, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).([]domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapSvc) GetItemSwapDetails(ctx context.Context, itemID string) ([]domain.Swap, error) {
	args := m.Called(ctx, itemID)
	if s, _ := args.Get(0).([]domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// withClaims injects JWT claims into the request context.
func withClaims(r *http.Request, userID string) *http.Request {
	claims := &jwtinfra.Claims{UserID: userID}
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsKey, claims))
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- Propose tests ---

func TestProposeSwap_MissingClaims(t *testing.T) {
	h := NewSwapHandler(&mockSwapSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewBufferString("{}"))
	rr := httptest.NewRecorder()
	h.Propose(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProposeSwap_InvalidBody(t *testing.T) {
	h := NewSwapHandler(&mockSwapSvc{})
	r := withClaims(httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewBufferString("not-json")), "alice")
	rr := httptest.NewRecorder()
	h.Propose(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProposeSwap_HappyPath(t *testing.T) {
	svc := &mockSwapSvc{}
	created := &domain.Swap{SwapID: "swap-1", ProposerID: "alice", Status: domain.SwapStatusPending}
	svc.On("Propose", mock.Anything, "alice", mock.Anything).Return(created, nil)
	h := NewSwapHandler(svc)

	body, _ := json.Marshal(domain.ProposeSwapRequest{
		ProposedItemID: "item-a", ReceiverID: "bob", ReceiverItemID: "item-b",
	})
	r := withClaims(httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	h.Propose(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp domain.Swap
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "swap-1", resp.SwapID)
	svc.AssertExpectations(t)
}

func TestProposeSwap_SelfSwap(t *testing.T) {
	svc := &mockSwapSvc{}
	svc.On("Propose", mock.Anything, "alice", mock.Anything).Return(nil, domain.ErrBadRequest)
	h := NewSwapHandler(svc)

	body, _ := json.Marshal(domain.ProposeSwapRequest{
		ProposedItemID: "item-a", ReceiverID: "alice", ReceiverItemID: "item-b",
	})
	r := withClaims(httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewReader(body)), "alice")
	rr := httptest.NewRecorder()
	h.Propose(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- transition tests ---

func TestAcceptSwap_HappyPath(t *testing.T) {
	svc := &mockSwapSvc{}
	accepted := &domain.Swap{SwapID: "swap-1", Status: domain.SwapStatusAccepted}
	svc.On("transition", mock.Anything, "swap-1", "bob").Return(accepted, nil)
	h := NewSwapHandler(svc)

	r := withClaims(withChiID(httptest.NewRequest(http.MethodPut, "/v1/swaps/swap-1/accept", nil), "swap-1"), "bob")
	rr := httptest.NewRecorder()
	h.Accept(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.Swap
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, domain.SwapStatusAccepted, resp.Status)
}

func TestAcceptSwap_WrongActor(t *testing.T) {
	svc := &mockSwapSvc{}
	svc.On("transition", mock.Anything, "swap-1", "alice").Return(nil, domain.ErrForbidden)
	h := NewSwapHandler(svc)

	r := withClaims(withChiID(httptest.NewRequest(http.MethodPut, "/v1/swaps/swap-1/accept", nil), "swap-1"), "alice")
	rr := httptest.NewRecorder()
	h.Accept(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCompleteSwap_AlreadyCompleted(t *testing.T) {
	svc := &mockSwapSvc{}
	svc.On("transition", mock.Anything, "swap-1", "alice").Return(nil, domain.ErrInvalidState)
	h := NewSwapHandler(svc)

	r := withClaims(withChiID(httptest.NewRequest(http.MethodPut, "/v1/swaps/swap-1/complete", nil), "swap-1"), "alice")
	rr := httptest.NewRecorder()
	h.Complete(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- list tests ---

func TestListSwaps_IncomingDirection(t *testing.T) {
	svc := &mockSwapSvc{}
	svc.On("list", mock.Anything, "bob").Return([]domain.Swap{{SwapID: "swap-1"}}, nil)
	h := NewSwapHandler(svc)

	r := withClaims(httptest.NewRequest(http.MethodGet, "/v1/swaps?direction=incoming", nil), "bob")
	rr := httptest.NewRecorder()
	h.List(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []domain.Swap
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 1)
}
