package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ReasonProductNotFound marks lookups of products that do not exist.
const ReasonProductNotFound pkgerrors.Reason = "product_not_found"

// Reader is the read-only product surface used by the cart, checkout and wishlist.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductForShare(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// Repository reads products through GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a reader bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetProduct loads a product or returns a product_not_found error.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, id)
	}
	return &product, nil
}

// GetProductForShare loads the product holding a share lock until the
// surrounding transaction ends, so stock cannot change while it is validated.
func (r *Repository) GetProductForShare(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return &product, nil
}

// GetProducts loads the requested products keyed by id. Missing ids are absent from the map.
func (r *Repository) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// NotFound builds the product_not_found error for id.
func NotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithReason(ReasonProductNotFound).
		WithDetails(map[string]any{"product_id": id.String()})
}

func mapLookupError(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
