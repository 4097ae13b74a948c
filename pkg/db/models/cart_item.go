package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one (product, size, color) line of a cart. Nil variants mean no selection.
type CartItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID        uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Product       *Product  `gorm:"foreignKey:ProductID"`
	Quantity      int       `gorm:"column:quantity;not null"`
	SelectedSize  *string   `gorm:"column:selected_size"`
	SelectedColor *string   `gorm:"column:selected_color"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
