package checkout

import (
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	ReasonItemUnavailable     pkgerrors.Reason = "item_unavailable"
	ReasonCartEmpty           pkgerrors.Reason = "cart_empty"
	ReasonPaymentGatewayError pkgerrors.Reason = "payment_gateway_error"
	ReasonAttemptNotFound     pkgerrors.Reason = "checkout_attempt_not_found"
)

func errItemUnavailable(productName string) error {
	return pkgerrors.New(pkgerrors.CodeAvailability, productName+" is no longer available in the requested quantity").
		WithReason(ReasonItemUnavailable).
		WithDetails(map[string]any{"product_name": productName})
}

func errCartEmpty() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty").WithReason(ReasonCartEmpty)
}

func errPaymentGateway(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodePaymentGateway, cause, "create checkout session").
		WithReason(ReasonPaymentGatewayError)
}
