package wishlist

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

// ItemDTO wraps the product snapshot included in a wishlist row.
type ItemDTO struct {
	Product   catalog.ProductSnapshot `json:"product"`
	CreatedAt time.Time               `json:"created_at"`
}
