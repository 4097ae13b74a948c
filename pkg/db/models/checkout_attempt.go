package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CheckoutLine is the priced line handed to the payment gateway.
type CheckoutLine struct {
	ProductID       *uuid.UUID `json:"product_id,omitempty"`
	Name            string     `json:"name"`
	UnitAmountCents int64      `json:"unit_amount_cents"`
	Quantity        int64      `json:"quantity"`
	ImageURL        string     `json:"image_url,omitempty"`
	Size            string     `json:"size,omitempty"`
	Color           string     `json:"color,omitempty"`
}

// CheckoutAttempt records every hosted payment session requested for a cart.
type CheckoutAttempt struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	CartID           uuid.UUID                   `gorm:"column:cart_id;type:uuid;not null"`
	Status           enums.CheckoutAttemptStatus `gorm:"column:status;not null;default:'pending'"`
	GatewaySessionID *string                     `gorm:"column:gateway_session_id"`
	SubtotalCents    int64                       `gorm:"column:subtotal_cents;not null"`
	ShippingCents    int64                       `gorm:"column:shipping_cents;not null"`
	TotalCents       int64                       `gorm:"column:total_cents;not null"`
	Currency         string                      `gorm:"column:currency;not null"`
	LineItems        []CheckoutLine              `gorm:"column:line_items;type:jsonb;serializer:json"`
	FailureReason    *string                     `gorm:"column:failure_reason"`
	CompletedAt      *time.Time                  `gorm:"column:completed_at"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *CheckoutAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
