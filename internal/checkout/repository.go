package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var activeStatuses = []enums.CheckoutAttemptStatus{enums.CheckoutAttemptPending, enums.CheckoutAttemptOpen}

// AttemptRepository persists checkout attempts.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.CheckoutAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.CheckoutAttempt, error)
	MarkOpen(ctx context.Context, id uuid.UUID, sessionID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireStale(ctx context.Context, before time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CheckoutAttempt, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an attempt repository backed by the provided DB.
func NewRepository(db *gorm.DB) AttemptRepository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.CheckoutAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	if err := r.db.WithContext(ctx).Where("gateway_session_id = ?", sessionID).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) MarkOpen(ctx context.Context, id uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status = ?", id, enums.CheckoutAttemptPending).
		Updates(map[string]any{
			"status":             enums.CheckoutAttemptOpen,
			"gateway_session_id": sessionID,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":         enums.CheckoutAttemptFailed,
			"failure_reason": reason,
		}).Error
}

// MarkCompleted moves an active attempt to completed and reports whether it transitioned.
func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":       enums.CheckoutAttemptCompleted,
			"completed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkExpired moves an active attempt to expired and reports whether it transitioned.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Update("status", enums.CheckoutAttemptExpired)
	return res.RowsAffected > 0, res.Error
}

// ExpireStale expires every active attempt created before the cutoff.
func (r *repository) ExpireStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutAttempt{}).
		Where("status IN ? AND created_at < ?", activeStatuses, before).
		Update("status", enums.CheckoutAttemptExpired)
	return res.RowsAffected, res.Error
}

// ListByUser returns the user's attempts newest first with the cursor of the next page.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CheckoutAttempt, string, error) {
	page, err := pagination.Keyset(params)
	if err != nil {
		return nil, "", err
	}

	var rows []models.CheckoutAttempt
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(page).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	rows, next := pagination.Trim(rows, params.Limit, func(a models.CheckoutAttempt) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	return rows, next, nil
}
