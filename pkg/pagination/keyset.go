package pagination

import (
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const ReasonInvalidCursor pkgerrors.Reason = "invalid_cursor"

// Keyset returns a newest-first scope over (created_at, id) that starts after
// the cursor and fetches one row beyond the page to detect a next page.
// A malformed cursor is a validation error.
func Keyset(params Params) (func(*gorm.DB) *gorm.DB, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithReason(ReasonInvalidCursor).
			WithDetails(map[string]any{"field": "cursor"})
	}
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(params.Limit))
	}, nil
}

// Trim drops the lookahead row fetched by Keyset and returns the cursor of
// the next page, empty when rows was the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[len(rows)-1]))
}
