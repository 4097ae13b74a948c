package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// ProductSnapshot is the live product state shown next to a cart line.
type ProductSnapshot struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	PriceCents         int64     `json:"price_cents"`
	OriginalPriceCents *int64    `json:"original_price_cents,omitempty"`
	StockQuantity      int       `json:"stock_quantity"`
	InStock            bool      `json:"in_stock"`
	Sizes              []string  `json:"sizes"`
	Colors             []string  `json:"colors"`
	MainImage          string    `json:"main_image,omitempty"`
}

// Snapshot projects a product row.
func Snapshot(p *models.Product) ProductSnapshot {
	if p == nil {
		return ProductSnapshot{}
	}
	snap := ProductSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		PriceCents:    money.ToCents(p.Price),
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock,
		Sizes:         append([]string{}, p.Sizes...),
		Colors:        append([]string{}, p.Colors...),
		MainImage:     p.MainImage,
	}
	if p.OriginalPrice.Valid {
		cents := money.ToCents(p.OriginalPrice.Decimal)
		snap.OriginalPriceCents = &cents
	}
	return snap
}

// ImageURL resolves a stored image reference against the image host.
// Absolute references are returned untouched.
func ImageURL(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ""
	}
	if !strings.Contains(ref[strings.LastIndex(ref, "/")+1:], ".") {
		ref += ".jpg"
	}
	return baseURL + "/" + strings.TrimLeft(ref, "/")
}
