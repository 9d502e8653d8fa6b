package domain

import "time"

type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Fullname       string    `json:"fullname" dynamodbav:"fullname"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	ProfilePicture string    `json:"profile_picture,omitempty" dynamodbav:"profile_picture"`
	// Points is a denormalized projection of the points ledger. It is mutated
	// only through the ledger's conditional grant/debit writes, never patched
	// directly.
	Points               int       `json:"points" dynamodbav:"points"`
	FirstListingRewarded bool      `json:"-" dynamodbav:"first_listing_rewarded"`
	IsAdmin              bool      `json:"is_admin" dynamodbav:"is_admin"`
	RefreshToken         string    `json:"-" dynamodbav:"refresh_token"`
	CreatedAt            time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt            time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	Fullname        string `json:"fullname" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UpdateUserRequest struct {
	Fullname       *string `json:"fullname" validate:"omitempty,min=3"`
	ProfilePicture *string `json:"profile_picture"`
}
