package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/infrastructure/sns"
	"github.com/rewear-api/internal/pkg/id"
)

// Service is the notification emitter and query surface.
//
// Emit is fire-and-forget: it informs the counterpart of a state change and
// must never fail the exchange transition that triggered it. Failures are
// logged and swallowed.
type Service interface {
	Emit(ctx context.Context, n Event)
	ListAll(ctx context.Context, userID string) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string, notificationIDs []string) (int, error)
	Delete(ctx context.Context, notificationID, userID string) error
}

// Event describes a notification to emit.
type Event struct {
	ReceiverID string
	SenderID   string
	Type       string
	Message    string
	ResourceID string
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	Delete(ctx context.Context, notificationID string) error
}

type service struct {
	repo   notificationStore
	pusher sns.Publisher // nil disables push fan-out
}

func NewService(repo notificationStore, pusher sns.Publisher) Service {
	return &service{repo: repo, pusher: pusher}
}

func (s *service) Emit(ctx context.Context, e Event) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		ReceiverID:     e.ReceiverID,
		SenderID:       e.SenderID,
		Type:           e.Type,
		Message:        e.Message,
		ResourceID:     e.ResourceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		slog.Warn("notification write failed", "type", e.Type, "receiver", e.ReceiverID, "err", err)
		return
	}
	if s.pusher != nil {
		if err := s.pusher.Publish(ctx, n); err != nil {
			slog.Warn("notification push failed", "type", e.Type, "receiver", e.ReceiverID, "err", err)
		}
	}
}

func (s *service) ListAll(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, false)
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, true)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.ReceiverID != userID {
		return nil, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead marks the given notifications read, skipping any that do not
// belong to the user. Returns the number actually updated.
func (s *service) MarkAllRead(ctx context.Context, userID string, notificationIDs []string) (int, error) {
	if len(notificationIDs) == 0 {
		return 0, fmt.Errorf("notification ids are required: %w", domain.ErrBadRequest)
	}
	updated := 0
	for _, nid := range notificationIDs {
		n, err := s.repo.Get(ctx, nid)
		if err != nil || n.ReceiverID != userID {
			continue
		}
		if err := s.repo.MarkAsRead(ctx, nid); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, notificationID, userID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.ReceiverID != userID {
		return fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(ctx, notificationID)
}
