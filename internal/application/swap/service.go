package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/pkg/id"
	"github.com/rewear-api/internal/pkg/validate"
)

// Service is the swap state machine:
//
//	pending -> accepted -> completed
//	pending -> rejected
//	pending -> cancelled
//
// Each transition is validated here, written as a conditional update by the
// store, and followed by item-availability, ledger and notification side
// effects that never roll back the primary write.
type Service interface {
	Propose(ctx context.Context, proposerID string, req domain.ProposeSwapRequest) (*domain.Swap, error)
	Accept(ctx context.Context, swapID, actorID string) (*domain.Swap, error)
	Reject(ctx context.Context, swapID, actorID string) (*domain.Swap, error)
	Cancel(ctx context.Context, swapID, actorID string) (*domain.Swap, error)
	Complete(ctx context.Context, swapID, actorID string) (*domain.Swap, error)
	Get(ctx context.Context, swapID string) (*domain.Swap, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Swap, error)
	ListIncoming(ctx context.Context, userID string) ([]domain.Swap, error)
	ListOutgoing(ctx context.Context, userID string) ([]domain.Swap, error)
	GetItemSwapDetails(ctx context.Context, itemID string) ([]domain.Swap, error)
}

type swapStore interface {
	Put(ctx context.Context, s *domain.Swap) error
	Get(ctx context.Context, swapID string) (*domain.Swap, error)
	TransitionFromPending(ctx context.Context, swapID, newStatus string) error
	SetPartyCompleted(ctx context.Context, swapID, flagField string) (*domain.Swap, error)
	Finalize(ctx context.Context, swapID string) error
	ListByProposer(ctx context.Context, userID string) ([]domain.Swap, error)
	ListByReceiver(ctx context.Context, userID string) ([]domain.Swap, error)
	ListByItem(ctx context.Context, itemID string) ([]domain.Swap, error)
}

type itemStore interface {
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	SetStatus(ctx context.Context, itemID, status string) error
}

type ledger interface {
	Grant(ctx context.Context, userID string, amount int, reason string) error
}

type notifier interface {
	Emit(ctx context.Context, e notification.Event)
}

type service struct {
	repo     swapStore
	items    itemStore
	points   ledger
	notifier notifier
}

func NewService(repo swapStore, items itemStore, points ledger, notifier notifier) Service {
	return &service{repo: repo, items: items, points: points, notifier: notifier}
}

// DynamoDB attribute names for the two completion flags.
const (
	proposerCompletedField = "proposer_completed"
	receiverCompletedField = "receiver_completed"
)

func (s *service) Propose(ctx context.Context, proposerID string, req domain.ProposeSwapRequest) (*domain.Swap, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if req.ReceiverID == proposerID {
		return nil, fmt.Errorf("cannot swap items with yourself: %w", domain.ErrBadRequest)
	}
	proposed, err := s.items.Get(ctx, req.ProposedItemID)
	if err != nil {
		return nil, err
	}
	received, err := s.items.Get(ctx, req.ReceiverItemID)
	if err != nil {
		return nil, err
	}
	if proposed.OwnerID != proposerID {
		return nil, fmt.Errorf("proposed item is not owned by you: %w", domain.ErrForbidden)
	}
	if received.OwnerID != req.ReceiverID {
		return nil, fmt.Errorf("requested item is not owned by the receiver: %w", domain.ErrBadRequest)
	}
	// Availability is re-checked here, at write time. Either item may have
	// gone inactive or been claimed by a redemption since the listing was
	// rendered.
	if !proposed.Actionable() {
		return nil, fmt.Errorf("your item is not available for a swap: %w", domain.ErrInvalidState)
	}
	if !received.Actionable() {
		return nil, fmt.Errorf("this item is not available for a swap: %w", domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	sw := &domain.Swap{
		SwapID:         id.New(),
		ProposerID:     proposerID,
		ProposedItemID: req.ProposedItemID,
		ReceiverID:     req.ReceiverID,
		ReceiverItemID: req.ReceiverItemID,
		Message:        req.Message,
		Status:         domain.SwapStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, sw); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: req.ReceiverID,
		SenderID:   proposerID,
		Type:       domain.NotifSwapProposed,
		ResourceID: sw.SwapID,
		Message:    "You received a new swap proposal",
	})
	return sw, nil
}

// Accept moves a pending swap to accepted and takes both items off the
// market. Only the receiver may accept.
func (s *service) Accept(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	sw, err := s.loadPending(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if sw.ReceiverID != actorID {
		return nil, fmt.Errorf("you are not authorized to accept this swap: %w", domain.ErrForbidden)
	}
	if err := s.repo.TransitionFromPending(ctx, swapID, domain.SwapStatusAccepted); err != nil {
		return nil, err
	}
	sw.Status = domain.SwapStatusAccepted

	s.setItemStatuses(ctx, sw, domain.ItemStatusInactive)
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: sw.ProposerID,
		SenderID:   actorID,
		Type:       domain.NotifSwapAccepted,
		ResourceID: swapID,
		Message:    "Your swap proposal was accepted",
	})
	return sw, nil
}

// Reject moves a pending swap to rejected. Items return to active.
func (s *service) Reject(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	sw, err := s.loadPending(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if sw.ReceiverID != actorID {
		return nil, fmt.Errorf("you are not authorized to reject this swap: %w", domain.ErrForbidden)
	}
	if err := s.repo.TransitionFromPending(ctx, swapID, domain.SwapStatusRejected); err != nil {
		return nil, err
	}
	sw.Status = domain.SwapStatusRejected

	s.setItemStatuses(ctx, sw, domain.ItemStatusActive)
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: sw.ProposerID,
		SenderID:   actorID,
		Type:       domain.NotifSwapRejected,
		ResourceID: swapID,
		Message:    "Your swap proposal was rejected",
	})
	return sw, nil
}

// Cancel moves a pending swap to cancelled. Only the proposer may cancel.
func (s *service) Cancel(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	sw, err := s.loadPending(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if sw.ProposerID != actorID {
		return nil, fmt.Errorf("only the proposer can cancel this swap: %w", domain.ErrForbidden)
	}
	if err := s.repo.TransitionFromPending(ctx, swapID, domain.SwapStatusCancelled); err != nil {
		return nil, err
	}
	sw.Status = domain.SwapStatusCancelled

	s.setItemStatuses(ctx, sw, domain.ItemStatusActive)
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: sw.ReceiverID,
		SenderID:   actorID,
		Type:       domain.NotifSwapCancelled,
		ResourceID: swapID,
		Message:    "A swap proposal for your item was cancelled",
	})
	return sw, nil
}

// Complete records one party's completion confirmation on an accepted swap.
// The swap finalizes when the second party confirms: neither side can force
// settlement alone, and a repeat call by the same party gets ErrInvalidState
// instead of a second reward.
func (s *service) Complete(ctx context.Context, swapID, actorID string) (*domain.Swap, error) {
	sw, err := s.repo.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}

	var flagField string
	switch actorID {
	case sw.ProposerID:
		flagField = proposerCompletedField
	case sw.ReceiverID:
		flagField = receiverCompletedField
	default:
		return nil, fmt.Errorf("you are not a party to this swap: %w", domain.ErrForbidden)
	}

	// Friendlier message for the common repeats; the conditional update below
	// remains the authoritative guard.
	if sw.Status == domain.SwapStatusCompleted {
		return nil, fmt.Errorf("this swap is already completed: %w", domain.ErrInvalidState)
	}
	if sw.Status != domain.SwapStatusAccepted {
		return nil, fmt.Errorf("this swap is %s, not accepted: %w", sw.Status, domain.ErrInvalidState)
	}

	updated, err := s.repo.SetPartyCompleted(ctx, swapID, flagField)
	if err != nil {
		return nil, err
	}
	if !updated.ProposerCompleted || !updated.ReceiverCompleted {
		return updated, nil
	}
	return s.finalize(ctx, updated)
}

// finalize settles a bilaterally confirmed swap: status completed, both items
// sold, both parties rewarded and notified. The store's conditional write
// makes the settlement fire exactly once even when both parties confirm
// concurrently; the loser of that race returns the already-settled swap.
func (s *service) finalize(ctx context.Context, sw *domain.Swap) (*domain.Swap, error) {
	if err := s.repo.Finalize(ctx, sw.SwapID); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return s.repo.Get(ctx, sw.SwapID)
		}
		return nil, err
	}
	sw.Status = domain.SwapStatusCompleted

	s.setItemStatuses(ctx, sw, domain.ItemStatusSold)
	for _, userID := range []string{sw.ProposerID, sw.ReceiverID} {
		if err := s.points.Grant(ctx, userID, domain.SwapCompletionReward, domain.PointsReasonSwap); err != nil {
			slog.Warn("swap completion reward failed", "swap", sw.SwapID, "user", userID, "err", err)
		}
		s.notifier.Emit(ctx, notification.Event{
			ReceiverID: userID,
			Type:       domain.NotifSwapCompleted,
			ResourceID: sw.SwapID,
			Message:    fmt.Sprintf("Swap completed! You earned %d points", domain.SwapCompletionReward),
		})
	}
	return sw, nil
}

func (s *service) Get(ctx context.Context, swapID string) (*domain.Swap, error) {
	return s.repo.Get(ctx, swapID)
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]domain.Swap, error) {
	outgoing, err := s.repo.ListByProposer(ctx, userID)
	if err != nil {
		return nil, err
	}
	incoming, err := s.repo.ListByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(outgoing, incoming...), nil
}

func (s *service) ListIncoming(ctx context.Context, userID string) ([]domain.Swap, error) {
	return s.repo.ListByReceiver(ctx, userID)
}

func (s *service) ListOutgoing(ctx context.Context, userID string) ([]domain.Swap, error) {
	return s.repo.ListByProposer(ctx, userID)
}

// GetItemSwapDetails returns the swaps an item is involved in, on either
// side. The UI uses this to distinguish an item caught in a swap from a free
// one.
func (s *service) GetItemSwapDetails(ctx context.Context, itemID string) ([]domain.Swap, error) {
	return s.repo.ListByItem(ctx, itemID)
}

func (s *service) loadPending(ctx context.Context, swapID string) (*domain.Swap, error) {
	sw, err := s.repo.Get(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if sw.Status != domain.SwapStatusPending {
		return nil, fmt.Errorf("this swap is already %s: %w", sw.Status, domain.ErrInvalidState)
	}
	return sw, nil
}

// setItemStatuses applies a status to both sides' items. A failed item write
// after a successful swap transition is logged and left for the next
// transition to correct; the primary write is never rolled back.
func (s *service) setItemStatuses(ctx context.Context, sw *domain.Swap, status string) {
	for _, itemID := range []string{sw.ProposedItemID, sw.ReceiverItemID} {
		if err := s.items.SetStatus(ctx, itemID, status); err != nil {
			slog.Warn("item status update failed", "swap", sw.SwapID, "item", itemID, "status", status, "err", err)
		}
	}
}
