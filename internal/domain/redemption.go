package domain

import "time"

// Redemption status values. Both completed and cancelled are terminal.
const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusCompleted = "completed"
	RedemptionStatusCancelled = "cancelled"
)

type Redemption struct {
	RedemptionID string `json:"id" dynamodbav:"redemption_id"`
	UserID       string `json:"user_id" dynamodbav:"user_id"`
	ItemID       string `json:"item_id" dynamodbav:"item_id"`
	// OwnerID is copied from the item so shipment and payout checks do not
	// need a second read.
	OwnerID string `json:"owner_id" dynamodbav:"owner_id"`
	// PointsUsed snapshots the item price at redemption time; later price
	// edits do not change what the owner earns on completion.
	PointsUsed          int       `json:"points_used" dynamodbav:"points_used"`
	Status              string    `json:"status" dynamodbav:"status"`
	ConfirmedBySender   bool      `json:"confirmed_by_sender" dynamodbav:"confirmed_by_sender"`
	ConfirmedByReceiver bool      `json:"confirmed_by_receiver" dynamodbav:"confirmed_by_receiver"`
	CreatedAt           time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time `json:"updated" dynamodbav:"updated_at"`
}
