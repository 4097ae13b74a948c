package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the cart operations. Every call runs in a single transaction.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
}

// AddItemInput is the addItem payload. Callers default an omitted quantity to one.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
	Color     *string
}

// View is a cart with live product snapshots and totals.
type View struct {
	CartID *uuid.UUID `json:"cart_id,omitempty"`
	Items  []ItemView `json:"items"`
	Totals Totals     `json:"totals"`
}

// ItemView is one cart line.
type ItemView struct {
	ID             uuid.UUID               `json:"id"`
	ProductID      uuid.UUID               `json:"product_id"`
	Quantity       int                     `json:"quantity"`
	SelectedSize   *string                 `json:"selected_size,omitempty"`
	SelectedColor  *string                 `json:"selected_color,omitempty"`
	LineTotalCents int64                   `json:"line_total_cents"`
	Product        catalog.ProductSnapshot `json:"product"`
}

type service struct {
	repo     CartRepository
	products catalog.Reader
	tx       txRunner
	policy   PricingPolicy
	metrics  *metrics.Metrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products catalog.Reader, tx txRunner, policy PricingPolicy, m *metrics.Metrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		policy:   policy,
		metrics:  m,
	}, nil
}

// GetCart returns the cart, or an empty view when the user has none. It never creates a cart.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized()
	}

	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			view = emptyView()
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		view, err = s.buildView(ctx, repo, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AddItem adds quantity units of a product variant, merging with an existing line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (view *View, err error) {
	defer func() { s.metrics.CartOperation("add_item", err) }()

	if userID == uuid.Nil {
		return nil, ErrUnauthorized()
	}
	quantity := input.Quantity
	if quantity < 1 {
		return nil, errInvalidQuantity(quantity)
	}
	variant := NewVariant(input.Size, input.Color)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		cart, err := repo.GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get or create cart")
		}

		product, err := products.GetProductForShare(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !product.InStock || quantity > product.StockQuantity {
			return errProductUnavailable(product.ID, availableStock(product))
		}
		if err := variant.Validate(product); err != nil {
			return err
		}

		existing, err := repo.FindItem(ctx, cart.ID, product.ID, variant)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := &models.CartItem{
				ID:            uuid.New(),
				CartID:        cart.ID,
				ProductID:     product.ID,
				Quantity:      quantity,
				SelectedSize:  variant.SizePtr(),
				SelectedColor: variant.ColorPtr(),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
		default:
			combined := existing.Quantity + quantity
			if combined > product.StockQuantity {
				return errInsufficientStock(product.StockQuantity, combined)
			}
			if err := repo.UpdateItemQuantity(ctx, existing.ID, combined); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		}

		view, err = s.buildView(ctx, repo, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateQuantity sets an owned line to an explicit positive quantity.
func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (view *View, err error) {
	defer func() { s.metrics.CartOperation("update_quantity", err) }()

	if userID == uuid.Nil {
		return nil, ErrUnauthorized()
	}
	if quantity < 1 {
		return nil, errInvalidQuantity(quantity)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.LockByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errCartItemNotFound()
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}

		item, err := repo.FindItemInCart(ctx, cart.ID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errCartItemNotFound()
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
		}

		product, err := s.products.WithTx(tx).GetProductForShare(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if !product.InStock {
			return errProductUnavailable(product.ID, availableStock(product))
		}
		if quantity > product.StockQuantity {
			return errInsufficientStock(product.StockQuantity, quantity)
		}

		if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		view, err = s.buildView(ctx, repo, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// RemoveItem deletes an owned line. Missing or foreign items are cart_item_not_found.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (view *View, err error) {
	defer func() { s.metrics.CartOperation("remove_item", err) }()

	if userID == uuid.Nil {
		return nil, ErrUnauthorized()
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.LockByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartNotFound()
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}

		deleted, err := repo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if !deleted {
			return errCartItemNotFound()
		}

		view, err = s.buildView(ctx, repo, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) buildView(ctx context.Context, repo CartRepository, cartID uuid.UUID) (*View, error) {
	items, err := repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	id := cartID
	view := &View{CartID: &id, Items: make([]ItemView, 0, len(items))}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		lines = append(lines, Line{UnitPrice: item.Product.Price, Quantity: item.Quantity})
		view.Items = append(view.Items, ItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			SelectedSize:   item.SelectedSize,
			SelectedColor:  item.SelectedColor,
			LineTotalCents: money.ToCents(item.Product.Price) * int64(item.Quantity),
			Product:        catalog.Snapshot(item.Product),
		})
	}
	view.Totals = viewTotals(lines, s.policy)
	return view, nil
}

func emptyView() *View {
	return &View{Items: []ItemView{}, Totals: viewTotals(nil, PricingPolicy{})}
}

func availableStock(p *models.Product) int {
	if !p.InStock || p.StockQuantity < 0 {
		return 0
	}
	return p.StockQuantity
}
