package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/rewear-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if n, _ := args.Get(0).([]domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) MarkAsRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockNotificationStore) Delete(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}

type mockPusher struct{ mock.Mock }

func (m *mockPusher) Publish(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

// --- Emit ---

func TestEmit_StoresAndPushes(t *testing.T) {
	ns, ps := &mockNotificationStore{}, &mockPusher{}

	ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	ps.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	NewService(ns, ps).Emit(context.Background(), Event{
		ReceiverID: "bob",
		SenderID:   "alice",
		Type:       domain.NotifSwapProposed,
		Message:    "You received a new swap proposal",
		ResourceID: "swap-1",
	})

	ns.AssertCalled(t, "Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.ReceiverID == "bob" && n.Type == domain.NotifSwapProposed && n.NotificationID != ""
	}))
	ps.AssertCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEmit_StoreFailureIsSwallowed(t *testing.T) {
	ns, ps := &mockNotificationStore{}, &mockPusher{}

	ns.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	// Must not panic or propagate; push is skipped when the write failed.
	NewService(ns, ps).Emit(context.Background(), Event{ReceiverID: "bob", Type: domain.NotifSwapProposed})

	ps.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestEmit_NilPusher(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("Put", mock.Anything, mock.Anything).Return(nil)

	NewService(ns, nil).Emit(context.Background(), Event{ReceiverID: "bob", Type: domain.NotifSwapProposed})

	ns.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestEmit_PushFailureIsSwallowed(t *testing.T) {
	ns, ps := &mockNotificationStore{}, &mockPusher{}

	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	ps.On("Publish", mock.Anything, mock.Anything).Return(errors.New("sns down"))

	NewService(ns, ps).Emit(context.Background(), Event{ReceiverID: "bob", Type: domain.NotifSwapProposed})

	ns.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- queries and mutations ---

func TestMarkAsRead(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", ReceiverID: "bob"}, nil)
	ns.On("MarkAsRead", mock.Anything, "n-1").Return(nil)

	n, err := NewService(ns, nil).MarkAsRead(context.Background(), "n-1", "bob")

	require.NoError(t, err)
	assert.True(t, n.IsRead)
}

func TestMarkAsRead_OtherUsersNotification(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", ReceiverID: "bob"}, nil)

	_, err := NewService(ns, nil).MarkAsRead(context.Background(), "n-1", "mallory")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	ns.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAllRead_SkipsForeignNotifications(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", ReceiverID: "bob"}, nil)
	ns.On("Get", mock.Anything, "n-2").Return(&domain.Notification{NotificationID: "n-2", ReceiverID: "alice"}, nil)
	ns.On("Get", mock.Anything, "n-3").Return(nil, domain.ErrNotFound)
	ns.On("MarkAsRead", mock.Anything, "n-1").Return(nil)

	updated, err := NewService(ns, nil).MarkAllRead(context.Background(), "bob", []string{"n-1", "n-2", "n-3"})

	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	ns.AssertNumberOfCalls(t, "MarkAsRead", 1)
}

func TestMarkAllRead_EmptyIDs(t *testing.T) {
	ns := &mockNotificationStore{}

	_, err := NewService(ns, nil).MarkAllRead(context.Background(), "bob", nil)

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestDelete_OtherUsersNotification(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", ReceiverID: "bob"}, nil)

	err := NewService(ns, nil).Delete(context.Background(), "n-1", "mallory")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	ns.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestListUnread(t *testing.T) {
	ns := &mockNotificationStore{}

	ns.On("ListByUser", mock.Anything, "bob", true).Return([]domain.Notification{{NotificationID: "n-1"}}, nil)

	out, err := NewService(ns, nil).ListUnread(context.Background(), "bob")

	require.NoError(t, err)
	assert.Len(t, out, 1)
}
