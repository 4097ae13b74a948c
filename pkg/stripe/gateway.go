package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultTimeout      = 15 * time.Second
	breakerName         = "stripe-checkout"
	breakerFailureTrip  = 5
	breakerOpenDuration = 30 * time.Second
)

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// CheckoutGateway creates Stripe hosted checkout sessions.
type CheckoutGateway struct {
	create  sessionCreator
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	logg    *logger.Logger
}

var _ checkout.PaymentGateway = (*CheckoutGateway)(nil)

// NewCheckoutGateway wires the gateway to Stripe's checkout session API.
func NewCheckoutGateway(client *Client, timeout time.Duration, logg *logger.Logger) (*CheckoutGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return newCheckoutGateway(session.New, timeout, logg), nil
}

func newCheckoutGateway(create sessionCreator, timeout time.Duration, logg *logger.Logger) *CheckoutGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	g := &CheckoutGateway{create: create, timeout: timeout, logg: logg}
	g.breaker = gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:    breakerName,
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureTrip
		},
		IsSuccessful: func(err error) bool {
			// Card, request and idempotency errors do not count toward tripping.
			var stripeErr *stripe.Error
			if errors.As(err, &stripeErr) {
				switch stripeErr.Type {
				case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeIdempotency:
					return true
				}
				return false
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logg != nil {
				g.logg.Warn(context.Background(), fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to))
			}
		},
	})
	return g
}

// CreateSession opens a payment-mode Checkout Session for the provided lines.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req checkout.SessionRequest) (*checkout.Session, error) {
	if len(req.Lines) == 0 {
		return nil, errors.New("checkout session requires at least one line")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := buildSessionParams(req)
	params.Context = ctx

	created, err := g.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.create(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &checkout.Session{ID: created.ID, URL: created.URL}, nil
}

func buildSessionParams(req checkout.SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if id := req.Metadata[checkout.MetadataAttemptID]; id != "" {
		params.ClientReferenceID = stripe.String(id)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{line.ImageURL})
		}
		if desc := variantDescription(line.Size, line.Color); desc != "" {
			product.Description = stripe.String(desc)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(line.UnitAmountCents),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	return params
}

func variantDescription(size, color string) string {
	switch {
	case size != "" && color != "":
		return "Size: " + size + ", Color: " + color
	case size != "":
		return "Size: " + size
	case color != "":
		return "Color: " + color
	}
	return ""
}
