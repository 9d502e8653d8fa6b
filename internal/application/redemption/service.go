package redemption

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/pkg/id"
)

// Service handles point redemptions of listed items:
//
//	pending -> completed   (sender ships, then receiver confirms)
//	pending -> cancelled
//
// Redeeming claims the item and debits the buyer up front; the seller is
// paid out only when the buyer confirms receipt. A cancelled redemption
// frees the item but keeps the points, matching a restocking outcome.
type Service interface {
	Redeem(ctx context.Context, redeemerID, itemID string) (*domain.Redemption, error)
	MarkShipped(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error)
	MarkReceived(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error)
	Cancel(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error)
	Get(ctx context.Context, redemptionID string) (*domain.Redemption, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error)
	GetItemRedemptionDetails(ctx context.Context, itemID string) ([]domain.Redemption, error)
}

type redemptionStore interface {
	Put(ctx context.Context, r *domain.Redemption) error
	Get(ctx context.Context, redemptionID string) (*domain.Redemption, error)
	MarkShipped(ctx context.Context, redemptionID string) error
	MarkReceived(ctx context.Context, redemptionID string) error
	Cancel(ctx context.Context, redemptionID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error)
	GetOpenByItem(ctx context.Context, itemID string) ([]domain.Redemption, error)
}

type itemStore interface {
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	SetStatus(ctx context.Context, itemID, status string) error
	AcquireRedemptionLock(ctx context.Context, itemID, redemptionID string) error
	ReleaseRedemptionLock(ctx context.Context, itemID, redemptionID string) error
}

type ledger interface {
	Grant(ctx context.Context, userID string, amount int, reason string) error
	Debit(ctx context.Context, userID string, amount int, reason string) error
}

type notifier interface {
	Emit(ctx context.Context, e notification.Event)
}

type service struct {
	repo     redemptionStore
	items    itemStore
	points   ledger
	notifier notifier
}

func NewService(repo redemptionStore, items itemStore, points ledger, notifier notifier) Service {
	return &service{repo: repo, items: items, points: points, notifier: notifier}
}

// Redeem claims an item for the redeemer and debits its point price. The
// item lock is taken first so two buyers cannot redeem the same item: the
// conditional write on the item admits exactly one. Every later failure
// unwinds what was already done before returning.
func (s *service) Redeem(ctx context.Context, redeemerID, itemID string) (*domain.Redemption, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == redeemerID {
		return nil, fmt.Errorf("you cannot redeem your own item: %w", domain.ErrBadRequest)
	}
	if item.ListingType != domain.ListingTypeRedeem && item.ListingType != domain.ListingTypeGiveaway {
		return nil, fmt.Errorf("this item is not listed for point redemption: %w", domain.ErrBadRequest)
	}

	rid := id.New()
	if err := s.items.AcquireRedemptionLock(ctx, itemID, rid); err != nil {
		return nil, err
	}

	if item.Price > 0 {
		if err := s.points.Debit(ctx, redeemerID, item.Price, domain.PointsReasonRedemption); err != nil {
			s.releaseLock(ctx, itemID, rid)
			return nil, err
		}
	}

	now := time.Now().UTC()
	r := &domain.Redemption{
		RedemptionID: rid,
		UserID:       redeemerID,
		ItemID:       itemID,
		OwnerID:      item.OwnerID,
		PointsUsed:   item.Price,
		Status:       domain.RedemptionStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, r); err != nil {
		if item.Price > 0 {
			if gerr := s.points.Grant(ctx, redeemerID, item.Price, domain.PointsReasonRedemption); gerr != nil {
				slog.Error("redemption refund failed", "redemption", rid, "user", redeemerID, "err", gerr)
			}
		}
		s.releaseLock(ctx, itemID, rid)
		return nil, err
	}

	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: item.OwnerID,
		SenderID:   redeemerID,
		Type:       domain.NotifItemRedeemed,
		ResourceID: rid,
		Message:    fmt.Sprintf("Your item %q was redeemed for %d points", item.Title, item.Price),
	})
	return r, nil
}

// MarkShipped records that the item owner handed the item off. Only the
// owner may call it, once, while the redemption is pending.
func (s *service) MarkShipped(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error) {
	r, err := s.repo.Get(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != actorID {
		return nil, fmt.Errorf("only the item owner can mark a redemption shipped: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkShipped(ctx, redemptionID); err != nil {
		return nil, err
	}
	r.ConfirmedBySender = true

	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: r.UserID,
		SenderID:   actorID,
		Type:       domain.NotifItemShipped,
		ResourceID: redemptionID,
		Message:    "Your redeemed item has been shipped",
	})
	return r, nil
}

// MarkReceived is the redeemer's receipt confirmation. It completes the
// redemption, marks the item sold and pays the held points out to the owner.
// The store's conditional write requires the shipment confirmation first and
// admits the receipt exactly once, so the payout cannot double.
func (s *service) MarkReceived(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error) {
	r, err := s.repo.Get(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.UserID != actorID {
		return nil, fmt.Errorf("only the redeemer can confirm receipt: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkReceived(ctx, redemptionID); err != nil {
		return nil, err
	}
	r.ConfirmedByReceiver = true
	r.Status = domain.RedemptionStatusCompleted

	if err := s.items.SetStatus(ctx, r.ItemID, domain.ItemStatusSold); err != nil {
		slog.Warn("item status update failed", "redemption", redemptionID, "item", r.ItemID, "err", err)
	}
	if r.PointsUsed > 0 {
		if err := s.points.Grant(ctx, r.OwnerID, r.PointsUsed, domain.PointsReasonRedemption); err != nil {
			slog.Error("redemption payout failed", "redemption", redemptionID, "owner", r.OwnerID, "err", err)
		}
	}
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: r.OwnerID,
		SenderID:   actorID,
		Type:       domain.NotifItemReceived,
		ResourceID: redemptionID,
		Message:    "Your item was received and the redemption is complete",
	})
	return r, nil
}

// Cancel aborts a pending redemption before shipment and frees the item for
// other buyers. The spent points are not returned.
func (s *service) Cancel(ctx context.Context, redemptionID, actorID string) (*domain.Redemption, error) {
	r, err := s.repo.Get(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if r.UserID != actorID {
		return nil, fmt.Errorf("only the redeemer can cancel a redemption: %w", domain.ErrForbidden)
	}
	if err := s.repo.Cancel(ctx, redemptionID); err != nil {
		return nil, err
	}
	r.Status = domain.RedemptionStatusCancelled

	s.releaseLock(ctx, r.ItemID, redemptionID)
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: r.OwnerID,
		SenderID:   actorID,
		Type:       domain.NotifRedemptionCancelled,
		ResourceID: redemptionID,
		Message:    "A redemption of your item was cancelled",
	})
	return r, nil
}

func (s *service) Get(ctx context.Context, redemptionID string) (*domain.Redemption, error) {
	return s.repo.Get(ctx, redemptionID)
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetItemRedemptionDetails returns the non-cancelled redemptions of an item.
func (s *service) GetItemRedemptionDetails(ctx context.Context, itemID string) ([]domain.Redemption, error) {
	return s.repo.GetOpenByItem(ctx, itemID)
}

func (s *service) releaseLock(ctx context.Context, itemID, redemptionID string) {
	if err := s.items.ReleaseRedemptionLock(ctx, itemID, redemptionID); err != nil {
		slog.Warn("redemption lock release failed", "item", itemID, "redemption", redemptionID, "err", err)
	}
}
