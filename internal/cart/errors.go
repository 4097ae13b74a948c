package cart

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	ReasonUnauthorized       pkgerrors.Reason = "unauthorized"
	ReasonCartNotFound       pkgerrors.Reason = "cart_not_found"
	ReasonCartItemNotFound   pkgerrors.Reason = "cart_item_not_found"
	ReasonInvalidVariant     pkgerrors.Reason = "invalid_variant"
	ReasonInvalidQuantity    pkgerrors.Reason = "invalid_quantity"
	ReasonProductUnavailable pkgerrors.Reason = "product_unavailable"
	ReasonInsufficientStock  pkgerrors.Reason = "insufficient_stock"
)

// ErrUnauthorized is returned when an operation is called without a user.
func ErrUnauthorized() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required").WithReason(ReasonUnauthorized)
}

// ErrCartNotFound is returned when the user has no cart.
func ErrCartNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").WithReason(ReasonCartNotFound)
}

// Foreign and missing items are deliberately indistinguishable.
func errCartItemNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").WithReason(ReasonCartItemNotFound)
}

func errInvalidQuantity(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
		WithReason(ReasonInvalidQuantity).
		WithDetails(map[string]any{"quantity": quantity})
}

func errProductUnavailable(productID uuid.UUID, available int) error {
	return pkgerrors.New(pkgerrors.CodeAvailability, "product is not available in the requested quantity").
		WithReason(ReasonProductUnavailable).
		WithDetails(map[string]any{"product_id": productID.String(), "available": available})
}

func errInsufficientStock(available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeAvailability, fmt.Sprintf("only %d left in stock", available)).
		WithReason(ReasonInsufficientStock).
		WithDetails(map[string]any{"available": available, "requested": requested})
}
