package checkout

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// PaymentGateway creates hosted payment sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// SessionRequest is everything the gateway needs to render a hosted checkout.
type SessionRequest struct {
	Lines      []models.CheckoutLine
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	// IdempotencyKey lets the provider collapse retries of the same attempt.
	IdempotencyKey string
}

// Session is a created hosted checkout.
type Session struct {
	ID  string
	URL string
}

const (
	MetadataUserID    = "user_id"
	MetadataCartID    = "cart_id"
	MetadataAttemptID = "checkout_attempt_id"
)
