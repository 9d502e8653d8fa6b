package swap

import (
	"context"
	"testing"

	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSwapStore struct{ mock.Mock }

func (m *mockSwapStore) Put(ctx context.Context, s *domain.Swap) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSwapStore) Get(ctx context.Context, swapID string) (*domain.Swap, error) {
	args := m.Called(ctx, swapID)
	if s, _ := args.Get(0).(*domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapStore) TransitionFromPending(ctx context.Context, swapID, newStatus string) error {
	return m.Called(ctx, swapID, newStatus).Error(0)
}
func (m *mockSwapStore) SetPartyCompleted(ctx context.Context, swapID, flagField string) (*domain.Swap, error) {
	args := m.Called(ctx, swapID, flagField)
	if s, _ := args.Get(0).(*domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapStore) Finalize(ctx context.Context, swapID string) error {
	return m.Called(ctx, swapID).Error(0)
}
func (m *mockSwapStore) ListByProposer(ctx context.Context, userID string) ([]domain.Swap, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).([]domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapStore) ListByReceiver(ctx context.Context, userID string) ([]domain.Swap, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).([]domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSwapStore) ListByItem(ctx context.Context, itemID string) ([]domain.Swap, error) {
	args := m.Called(ctx, itemID)
	if s, _ := args.Get(0).([]domain.Swap); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockItemStore struct{ mock.Mock }

func (m *mockItemStore) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	args := m.Called(ctx, itemID)
	if i, _ := args.Get(0).(*domain.Item); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockItemStore) SetStatus(ctx context.Context, itemID, status string) error {
	return m.Called(ctx, itemID, status).Error(0)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Grant(ctx context.Context, userID string, amount int, reason string) error {
	return m.Called(ctx, userID, amount, reason).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Emit(ctx context.Context, e notification.Event) {
	m.Called(ctx, e)
}

// --- helpers ---

func newSvc(sr *mockSwapStore, ir *mockItemStore, lg *mockLedger, nt *mockNotifier) Service {
	return NewService(sr, ir, lg, nt)
}

func activeItem(itemID, ownerID string) *domain.Item {
	return &domain.Item{
		ItemID:      itemID,
		OwnerID:     ownerID,
		Title:       "Denim Jacket",
		Status:      domain.ItemStatusActive,
		ListingType: domain.ListingTypeSwap,
	}
}

func pendingSwap() *domain.Swap {
	return &domain.Swap{
		SwapID:         "swap-1",
		ProposerID:     "alice",
		ProposedItemID: "item-a",
		ReceiverID:     "bob",
		ReceiverItemID: "item-b",
		Status:         domain.SwapStatusPending,
	}
}

func acceptedSwap() *domain.Swap {
	s := pendingSwap()
	s.Status = domain.SwapStatusAccepted
	return s
}

// --- Propose ---

func TestPropose(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	ir.On("Get", mock.Anything, "item-a").Return(activeItem("item-a", "alice"), nil)
	ir.On("Get", mock.Anything, "item-b").Return(activeItem("item-b", "bob"), nil)
	sr.On("Put", mock.Anything, mock.AnythingOfType("*domain.Swap")).Return(nil)
	nt.On("Emit", mock.Anything, mock.Anything).Return()

	sw, err := newSvc(sr, ir, lg, nt).Propose(context.Background(), "alice", domain.ProposeSwapRequest{
		ProposedItemID: "item-a",
		ReceiverID:     "bob",
		ReceiverItemID: "item-b",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusPending, sw.Status)
	assert.NotEmpty(t, sw.SwapID)
	nt.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e notification.Event) bool {
		return e.ReceiverID == "bob" && e.Type == domain.NotifSwapProposed
	}))
}

func TestPropose_SelfSwap(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	_, err := newSvc(sr, ir, lg, nt).Propose(context.Background(), "alice", domain.ProposeSwapRequest{
		ProposedItemID: "item-a",
		ReceiverID:     "alice",
		ReceiverItemID: "item-b",
	})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	sr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestPropose_ProposedItemNotOwned(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	ir.On("Get", mock.Anything, "item-a").Return(activeItem("item-a", "carol"), nil)
	ir.On("Get", mock.Anything, "item-b").Return(activeItem("item-b", "bob"), nil)

	_, err := newSvc(sr, ir, lg, nt).Propose(context.Background(), "alice", domain.ProposeSwapRequest{
		ProposedItemID: "item-a",
		ReceiverID:     "bob",
		ReceiverItemID: "item-b",
	})

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPropose_ItemLockedByRedemption(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	locked := activeItem("item-b", "bob")
	locked.ActiveRedemptionID = "red-1"
	ir.On("Get", mock.Anything, "item-a").Return(activeItem("item-a", "alice"), nil)
	ir.On("Get", mock.Anything, "item-b").Return(locked, nil)

	_, err := newSvc(sr, ir, lg, nt).Propose(context.Background(), "alice", domain.ProposeSwapRequest{
		ProposedItemID: "item-a",
		ReceiverID:     "bob",
		ReceiverItemID: "item-b",
	})

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	sr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Accept / Reject / Cancel ---

func TestAccept(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(pendingSwap(), nil)
	sr.On("TransitionFromPending", mock.Anything, "swap-1", domain.SwapStatusAccepted).Return(nil)
	ir.On("SetStatus", mock.Anything, "item-a", domain.ItemStatusInactive).Return(nil)
	ir.On("SetStatus", mock.Anything, "item-b", domain.ItemStatusInactive).Return(nil)
	nt.On("Emit", mock.Anything, mock.Anything).Return()

	sw, err := newSvc(sr, ir, lg, nt).Accept(context.Background(), "swap-1", "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusAccepted, sw.Status)
	ir.AssertCalled(t, "SetStatus", mock.Anything, "item-a", domain.ItemStatusInactive)
	ir.AssertCalled(t, "SetStatus", mock.Anything, "item-b", domain.ItemStatusInactive)
}

func TestAccept_NotReceiver(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(pendingSwap(), nil)

	_, err := newSvc(sr, ir, lg, nt).Accept(context.Background(), "swap-1", "alice")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	sr.AssertNotCalled(t, "TransitionFromPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccept_NotPending(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(acceptedSwap(), nil)

	_, err := newSvc(sr, ir, lg, nt).Accept(context.Background(), "swap-1", "bob")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReject_ReturnsItemsToActive(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(pendingSwap(), nil)
	sr.On("TransitionFromPending", mock.Anything, "swap-1", domain.SwapStatusRejected).Return(nil)
	ir.On("SetStatus", mock.Anything, mock.Anything, domain.ItemStatusActive).Return(nil)
	nt.On("Emit", mock.Anything, mock.Anything).Return()

	sw, err := newSvc(sr, ir, lg, nt).Reject(context.Background(), "swap-1", "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusRejected, sw.Status)
	nt.AssertCalled(t, "Emit", mock.Anything, mock.MatchedBy(func(e notification.Event) bool {
		return e.ReceiverID == "alice" && e.Type == domain.NotifSwapRejected
	}))
}

func TestCancel_OnlyProposer(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(pendingSwap(), nil)

	_, err := newSvc(sr, ir, lg, nt).Cancel(context.Background(), "swap-1", "bob")

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// --- Complete ---

func TestComplete_FirstParty(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	half := acceptedSwap()
	half.ProposerCompleted = true
	sr.On("Get", mock.Anything, "swap-1").Return(acceptedSwap(), nil)
	sr.On("SetPartyCompleted", mock.Anything, "swap-1", proposerCompletedField).Return(half, nil)

	sw, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusAccepted, sw.Status)
	sr.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything)
	lg.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_SecondPartyFinalizes(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	before := acceptedSwap()
	before.ProposerCompleted = true
	both := acceptedSwap()
	both.ProposerCompleted = true
	both.ReceiverCompleted = true

	sr.On("Get", mock.Anything, "swap-1").Return(before, nil)
	sr.On("SetPartyCompleted", mock.Anything, "swap-1", receiverCompletedField).Return(both, nil)
	sr.On("Finalize", mock.Anything, "swap-1").Return(nil)
	ir.On("SetStatus", mock.Anything, mock.Anything, domain.ItemStatusSold).Return(nil)
	lg.On("Grant", mock.Anything, mock.Anything, domain.SwapCompletionReward, domain.PointsReasonSwap).Return(nil)
	nt.On("Emit", mock.Anything, mock.Anything).Return()

	sw, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusCompleted, sw.Status)
	ir.AssertCalled(t, "SetStatus", mock.Anything, "item-a", domain.ItemStatusSold)
	ir.AssertCalled(t, "SetStatus", mock.Anything, "item-b", domain.ItemStatusSold)
	lg.AssertCalled(t, "Grant", mock.Anything, "alice", domain.SwapCompletionReward, domain.PointsReasonSwap)
	lg.AssertCalled(t, "Grant", mock.Anything, "bob", domain.SwapCompletionReward, domain.PointsReasonSwap)
	lg.AssertNumberOfCalls(t, "Grant", 2)
}

func TestComplete_AlreadyCompleted(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	done := acceptedSwap()
	done.Status = domain.SwapStatusCompleted
	sr.On("Get", mock.Anything, "swap-1").Return(done, nil)

	_, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "alice")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	lg.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_NotAParty(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("Get", mock.Anything, "swap-1").Return(acceptedSwap(), nil)

	_, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "mallory")

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestComplete_RepeatConfirmation(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	half := acceptedSwap()
	half.ProposerCompleted = true
	sr.On("Get", mock.Anything, "swap-1").Return(half, nil)
	sr.On("SetPartyCompleted", mock.Anything, "swap-1", proposerCompletedField).
		Return(nil, domain.ErrInvalidState)

	_, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "alice")

	assert.ErrorIs(t, err, domain.ErrInvalidState)
	lg.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_LostFinalizeRace(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	before := acceptedSwap()
	before.ProposerCompleted = true
	both := acceptedSwap()
	both.ProposerCompleted = true
	both.ReceiverCompleted = true
	settled := acceptedSwap()
	settled.ProposerCompleted = true
	settled.ReceiverCompleted = true
	settled.Status = domain.SwapStatusCompleted

	sr.On("Get", mock.Anything, "swap-1").Return(before, nil).Once()
	sr.On("SetPartyCompleted", mock.Anything, "swap-1", receiverCompletedField).Return(both, nil)
	sr.On("Finalize", mock.Anything, "swap-1").Return(domain.ErrInvalidState)
	sr.On("Get", mock.Anything, "swap-1").Return(settled, nil)

	sw, err := newSvc(sr, ir, lg, nt).Complete(context.Background(), "swap-1", "bob")

	require.NoError(t, err)
	assert.Equal(t, domain.SwapStatusCompleted, sw.Status)
	lg.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	nt.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

// --- listings ---

func TestListForUser_MergesBothSides(t *testing.T) {
	sr, ir, lg, nt := &mockSwapStore{}, &mockItemStore{}, &mockLedger{}, &mockNotifier{}

	sr.On("ListByProposer", mock.Anything, "alice").Return([]domain.Swap{{SwapID: "s1"}}, nil)
	sr.On("ListByReceiver", mock.Anything, "alice").Return([]domain.Swap{{SwapID: "s2"}, {SwapID: "s3"}}, nil)

	swaps, err := newSvc(sr, ir, lg, nt).ListForUser(context.Background(), "alice")

	require.NoError(t, err)
	assert.Len(t, swaps, 3)
}
