package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO wishlist_items (id, user_id, product_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, product_id) DO NOTHING`,
			uuid.New(), userID, productID, time.Now().UTC()).
		Error
}

// RemoveItem deletes the user-product like and reports whether a row existed.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected > 0, res.Error
}

// ListItems returns a page of wishlist rows with products, newest first.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]models.WishlistItem, string, error) {
	page, err := pagination.Keyset(pagination.Params{Cursor: cursor, Limit: limit})
	if err != nil {
		return nil, "", err
	}

	var rows []models.WishlistItem
	err = r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Scopes(page).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	rows, next := pagination.Trim(rows, limit, func(item models.WishlistItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	})
	return rows, next, nil
}
