package domain

import "time"

// Points entry types.
const (
	PointsTypeEarned = "earned"
	PointsTypeSpent  = "spent"
)

// Points reasons.
const (
	PointsReasonRegistration = "registration"
	PointsReasonListing      = "listing"
	PointsReasonSwap         = "swap"
	PointsReasonRedemption   = "redemption"
)

// One-shot milestone bonuses.
const (
	RegistrationBonus = 20
	FirstListingBonus = 20
)

// PointsEntry is an immutable ledger record. Entries are only ever appended;
// a user's cached balance is the running sum of their entries.
type PointsEntry struct {
	EntryID   string    `json:"id" dynamodbav:"entry_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Type      string    `json:"type" dynamodbav:"type"`
	Amount    int       `json:"amount" dynamodbav:"amount"`
	Reason    string    `json:"reason" dynamodbav:"reason"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// ReconcileReport compares a user's cached balance against the ledger sum.
type ReconcileReport struct {
	UserID        string `json:"user_id"`
	CachedBalance int    `json:"cached_balance"`
	LedgerBalance int    `json:"ledger_balance"`
	Drift         int    `json:"drift"`
}
