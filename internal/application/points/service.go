package points

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/pkg/id"
)

// Service is the points ledger. Every mutation of a user's balance in the
// system goes through Grant or Debit so the conditional-write discipline is
// enforced in one place.
type Service interface {
	Grant(ctx context.Context, userID string, amount int, reason string) error
	Debit(ctx context.Context, userID string, amount int, reason string) error
	Balance(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string) ([]domain.PointsEntry, error)
	Reconcile(ctx context.Context, userID string) (*domain.ReconcileReport, error)
}

type ledgerStore interface {
	Append(ctx context.Context, e *domain.PointsEntry) error
	ListByUser(ctx context.Context, userID string) ([]domain.PointsEntry, error)
}

type balanceStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	AddPoints(ctx context.Context, userID string, amount int) error
	DebitPoints(ctx context.Context, userID string, amount int) error
}

type service struct {
	ledger ledgerStore
	users  balanceStore
}

func NewService(ledger ledgerStore, users balanceStore) Service {
	return &service{ledger: ledger, users: users}
}

// Grant appends an earned entry and increments the cached balance. If the
// increment fails after the entry is written the ledger and cache drift;
// Reconcile exposes that drift rather than the grant being rolled back.
func (s *service) Grant(ctx context.Context, userID string, amount int, reason string) error {
	if amount < 0 {
		return fmt.Errorf("grant amount must be >= 0: %w", domain.ErrBadRequest)
	}
	entry := s.newEntry(userID, domain.PointsTypeEarned, amount, reason)
	if err := s.ledger.Append(ctx, entry); err != nil {
		return err
	}
	if err := s.users.AddPoints(ctx, userID, amount); err != nil {
		slog.Warn("balance increment failed after ledger append", "user", userID, "entry", entry.EntryID, "err", err)
		return err
	}
	return nil
}

// Debit decrements the cached balance and appends a spent entry. The
// decrement is conditional on the balance covering the amount, checked at the
// store at write time, never against an earlier read.
func (s *service) Debit(ctx context.Context, userID string, amount int, reason string) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be >= 0: %w", domain.ErrBadRequest)
	}
	if err := s.users.DebitPoints(ctx, userID, amount); err != nil {
		return err
	}
	entry := s.newEntry(userID, domain.PointsTypeSpent, amount, reason)
	if err := s.ledger.Append(ctx, entry); err != nil {
		slog.Warn("ledger append failed after balance debit", "user", userID, "entry", entry.EntryID, "err", err)
		return err
	}
	return nil
}

// Balance returns the cached balance, not a recomputed ledger sum.
func (s *service) Balance(ctx context.Context, userID string) (int, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Points, nil
}

func (s *service) History(ctx context.Context, userID string) ([]domain.PointsEntry, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// Reconcile recomputes the balance from the ledger and reports any drift from
// the cached value. Purely an audit; it does not repair the cache.
func (s *service) Reconcile(ctx context.Context, userID string) (*domain.ReconcileReport, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := 0
	for _, e := range entries {
		switch e.Type {
		case domain.PointsTypeEarned:
			sum += e.Amount
		case domain.PointsTypeSpent:
			sum -= e.Amount
		}
	}
	return &domain.ReconcileReport{
		UserID:        userID,
		CachedBalance: u.Points,
		LedgerBalance: sum,
		Drift:         u.Points - sum,
	}, nil
}

func (s *service) newEntry(userID, typ string, amount int, reason string) *domain.PointsEntry {
	return &domain.PointsEntry{
		EntryID:   id.New(),
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
}
