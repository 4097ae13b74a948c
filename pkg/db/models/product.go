package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Product is a catalog listing. The cart engine only reads it.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	Slug          string              `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string             `gorm:"column:description"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	OriginalPrice decimal.NullDecimal `gorm:"column:original_price;type:numeric(10,2)"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null;default:0"`
	InStock       bool                `gorm:"column:in_stock;not null"`
	Sizes         dbtypes.StringList  `gorm:"column:sizes;type:jsonb;not null;default:'[]'"`
	Colors        dbtypes.StringList  `gorm:"column:colors;type:jsonb;not null;default:'[]'"`
	MainImage     string              `gorm:"column:main_image;not null;default:''"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
