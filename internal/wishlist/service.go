package wishlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const ReasonWishlistItemNotFound pkgerrors.Reason = "wishlist_item_not_found"

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	Products     catalog.Reader
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*pagination.Page[ItemDTO], error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	products     catalog.Reader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog reader is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		products:     params.Products,
	}, nil
}

// GetWishlist returns the paginated wishlist for a user.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*pagination.Page[ItemDTO], error) {
	if err := ensureUser(userID); err != nil {
		return nil, err
	}
	rows, next, err := s.wishlistRepo.ListItems(ctx, userID, cursor, limit)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	page := &pagination.Page[ItemDTO]{Items: make([]ItemDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		if row.Product == nil {
			continue
		}
		page.Items = append(page.Items, ItemDTO{Product: catalog.Snapshot(row.Product), CreatedAt: row.CreatedAt})
	}
	return page, nil
}

// AddItem ensures the product exists and adds it to the wishlist.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := ensureUser(userID); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry; a missing entry is NOT_FOUND.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if err := ensureUser(userID); err != nil {
		return err
	}
	removed, err := s.wishlistRepo.RemoveItem(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found").WithReason(ReasonWishlistItemNotFound)
	}
	return nil
}

func ensureUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
