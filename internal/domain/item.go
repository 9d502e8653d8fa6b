package domain

import "time"

// Item status values. Status is the availability gate for every exchange path:
// only active items can be proposed for a swap or redeemed.
const (
	ItemStatusActive   = "active"
	ItemStatusInactive = "inactive"
	ItemStatusSold     = "sold"
)

// Listing types. Swap-only and giveaway items always carry a zero price.
const (
	ListingTypeSwap     = "swap"
	ListingTypeRedeem   = "redeem"
	ListingTypeGiveaway = "giveaway"
)

type Item struct {
	ItemID      string   `json:"id" dynamodbav:"item_id"`
	OwnerID     string   `json:"owner_id" dynamodbav:"owner_id"`
	Title       string   `json:"title" dynamodbav:"title"`
	Description string   `json:"description" dynamodbav:"description"`
	Category    string   `json:"category" dynamodbav:"category"`
	Gender      string   `json:"gender,omitempty" dynamodbav:"gender"`
	Size        string   `json:"size" dynamodbav:"size"`
	Condition   string   `json:"condition" dynamodbav:"condition"`
	Tags        []string `json:"tags" dynamodbav:"tags"`
	Color       string   `json:"color,omitempty" dynamodbav:"color"`
	Brand       string   `json:"brand,omitempty" dynamodbav:"brand"`
	Price       int      `json:"price" dynamodbav:"price"`
	Images      []string `json:"images" dynamodbav:"images"`
	ListingType string   `json:"listing_type" dynamodbav:"listing_type"`
	Status      string   `json:"status" dynamodbav:"status"`
	// ActiveRedemptionID locks the item while a non-cancelled redemption is
	// open against it. Set and cleared with conditional writes so two
	// concurrent redeemers can never both acquire it.
	ActiveRedemptionID string    `json:"-" dynamodbav:"active_redemption_id,omitempty"`
	CreatedAt          time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Actionable reports whether a new exchange may be opened against the item.
// Callers must re-check this at write time, not only when the listing was rendered.
func (i *Item) Actionable() bool {
	return i.Status == ItemStatusActive && i.ActiveRedemptionID == ""
}

type CreateItemRequest struct {
	Title       string   `json:"title" validate:"required,min=3"`
	Description string   `json:"description" validate:"required,min=3"`
	Category    string   `json:"category" validate:"required,oneof=shirt tshirt pant jacket dress accessories footwear"`
	Gender      string   `json:"gender" validate:"omitempty,oneof=male female unisex"`
	Size        string   `json:"size" validate:"required,oneof=small medium large xlarge"`
	Condition   string   `json:"condition" validate:"required,oneof=new_with_tags new_without_tags like_new used gently_used good fair poor"`
	Tags        []string `json:"tags"`
	Color       string   `json:"color"`
	Brand       string   `json:"brand"`
	Price       int      `json:"price" validate:"min=0"`
	ListingType string   `json:"listing_type" validate:"required,oneof=swap redeem giveaway"`
}

type UpdateItemRequest struct {
	Description *string  `json:"description" validate:"omitempty,min=3"`
	Condition   *string  `json:"condition" validate:"omitempty,oneof=new_with_tags new_without_tags like_new used gently_used good fair poor"`
	Size        *string  `json:"size" validate:"omitempty,oneof=small medium large xlarge"`
	Price       *int     `json:"price" validate:"omitempty,min=0"`
	KeepImages  []string `json:"keep_images"`
}

// ItemFilter narrows listItems results. Zero values mean "no filter".
type ItemFilter struct {
	Category  string
	Condition string
	Size      string
	Gender    string
	Tags      []string
	Search    string
}
