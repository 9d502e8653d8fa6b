package domain

import "time"

// Swap status values. pending may move to accepted, rejected or cancelled;
// accepted moves to completed once both parties have confirmed. rejected,
// cancelled and completed are terminal.
const (
	SwapStatusPending   = "pending"
	SwapStatusAccepted  = "accepted"
	SwapStatusRejected  = "rejected"
	SwapStatusCancelled = "cancelled"
	SwapStatusCompleted = "completed"
)

// SwapCompletionReward is granted to each party when a swap finalizes.
const SwapCompletionReward = 15

type Swap struct {
	SwapID         string `json:"id" dynamodbav:"swap_id"`
	ProposerID     string `json:"proposer_id" dynamodbav:"proposer_id"`
	ProposedItemID string `json:"proposed_item_id" dynamodbav:"proposed_item_id"`
	ReceiverID     string `json:"receiver_id" dynamodbav:"receiver_id"`
	ReceiverItemID string `json:"receiver_item_id" dynamodbav:"receiver_item_id"`
	Message        string `json:"message,omitempty" dynamodbav:"message"`
	Status         string `json:"status" dynamodbav:"status"`
	// Bilateral confirmation flags. The swap finalizes only when both are
	// set, each by its own party.
	ProposerCompleted bool      `json:"proposer_completed" dynamodbav:"proposer_completed"`
	ReceiverCompleted bool      `json:"receiver_completed" dynamodbav:"receiver_completed"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updated" dynamodbav:"updated_at"`
}

type ProposeSwapRequest struct {
	ProposedItemID string `json:"proposed_item_id" validate:"required"`
	ReceiverID     string `json:"receiver_id" validate:"required"`
	ReceiverItemID string `json:"receiver_item_id" validate:"required"`
	Message        string `json:"message"`
}
