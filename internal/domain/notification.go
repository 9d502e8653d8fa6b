package domain

import "time"

// Notification event tags.
const (
	NotifPointsAwarded       = "points_awarded"
	NotifItemListed          = "item_listed"
	NotifSwapProposed        = "swap_proposed"
	NotifSwapAccepted        = "swap_accepted"
	NotifSwapRejected        = "swap_rejected"
	NotifSwapCancelled       = "swap_cancelled"
	NotifSwapCompleted       = "swap_completed"
	NotifItemRedeemed        = "item_redeemed"
	NotifItemShipped         = "item_shipped"
	NotifItemReceived        = "item_received"
	NotifRedemptionCancelled = "redemption_cancelled"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	ReceiverID     string    `json:"receiver_id" dynamodbav:"receiver_id"`
	SenderID       string    `json:"sender_id,omitempty" dynamodbav:"sender_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	Message        string    `json:"message" dynamodbav:"message"`
	ResourceID     string    `json:"resource_id,omitempty" dynamodbav:"resource_id"`
	IsRead         bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
