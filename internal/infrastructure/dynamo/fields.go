package dynamo

// DynamoDB attribute names used in update and condition expressions across all
// repos. Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldStatus              = "status"
	fieldPoints              = "points"
	fieldUpdatedAt           = "updated_at"
	fieldIsRead              = "is_read"
	fieldRefreshToken        = "refresh_token"
	fieldActiveRedemptionID  = "active_redemption_id"
	fieldProposerCompleted   = "proposer_completed"
	fieldReceiverCompleted   = "receiver_completed"
	fieldConfirmedBySender   = "confirmed_by_sender"
	fieldConfirmedByReceiver = "confirmed_by_receiver"
	fieldFirstListingReward  = "first_listing_rewarded"
)
