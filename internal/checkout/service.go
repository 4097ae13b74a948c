package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const shippingLineName = "Shipping"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service hands a validated cart off to the payment gateway.
type Service interface {
	BuildCheckout(ctx context.Context, userID uuid.UUID, opts BuildOptions) (*CheckoutResult, error)
	ListAttempts(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[AttemptView], error)
}

// BuildOptions carries per-request knobs.
type BuildOptions struct {
	IdempotencyKey string
}

// CheckoutResult is returned to the client, which redirects to RedirectURL.
type CheckoutResult struct {
	RedirectURL string    `json:"url"`
	AttemptID   uuid.UUID `json:"checkout_attempt_id"`
	SessionID   string    `json:"session_id"`
}

// AttemptView is the public shape of a checkout attempt.
type AttemptView struct {
	ID            uuid.UUID                   `json:"id"`
	CartID        uuid.UUID                   `json:"cart_id"`
	Status        enums.CheckoutAttemptStatus `json:"status"`
	SubtotalCents int64                       `json:"subtotal_cents"`
	ShippingCents int64                       `json:"shipping_cents"`
	TotalCents    int64                       `json:"total_cents"`
	Currency      string                      `json:"currency"`
	LineItems     []models.CheckoutLine       `json:"line_items"`
	CompletedAt   *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// Config holds the storefront-specific checkout settings.
type Config struct {
	BaseURL      string
	SuccessPath  string
	CancelPath   string
	ImageBaseURL string
	Currency     string
	Policy       cart.PricingPolicy
}

// Deps bundles the collaborators of the checkout service.
type Deps struct {
	Tx       txRunner
	Carts    cart.CartRepository
	Products catalog.Reader
	Attempts AttemptRepository
	Gateway  PaymentGateway
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

type service struct {
	deps Deps
	cfg  Config
}

// NewService builds the checkout service.
func NewService(deps Deps, cfg Config) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if deps.Attempts == nil {
		return nil, fmt.Errorf("attempt repository required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "usd"
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &service{deps: deps, cfg: cfg}, nil
}

// BuildCheckout validates the cart, records a pending attempt and opens a hosted session.
// The cart itself is never modified.
func (s *service) BuildCheckout(ctx context.Context, userID uuid.UUID, opts BuildOptions) (result *CheckoutResult, err error) {
	defer func() { s.deps.Metrics.CheckoutAttempt(err) }()

	if userID == uuid.Nil {
		return nil, cart.ErrUnauthorized()
	}

	var attempt *models.CheckoutAttempt
	err = s.deps.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.deps.Carts.WithTx(tx)

		record, err := carts.LockByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart.ErrCartNotFound()
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		items, err := carts.ListItems(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
		}
		if len(items) == 0 {
			return errCartEmpty()
		}
		if err := s.lockProducts(ctx, tx, items); err != nil {
			return err
		}

		attempt, err = s.priceCart(userID, record.ID, items)
		if err != nil {
			return err
		}
		if err := s.deps.Attempts.WithTx(tx).Create(ctx, attempt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout attempt")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logField(ctx, "checkout_attempt_id", attempt.ID.String())
	if key := strings.TrimSpace(opts.IdempotencyKey); key != "" {
		ctx = s.logField(ctx, "idempotency_key", key)
	}

	session, gwErr := s.createSession(ctx, attempt)
	if gwErr != nil {
		s.logError(ctx, "checkout.gateway_failed", gwErr)
		if markErr := s.deps.Attempts.MarkFailed(ctx, attempt.ID, gwErr.Error()); markErr != nil {
			s.logError(ctx, "checkout.mark_failed", markErr)
		}
		return nil, errPaymentGateway(gwErr)
	}

	if err := s.deps.Attempts.MarkOpen(ctx, attempt.ID, session.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout session")
	}
	s.logInfo(ctx, "checkout.session_created")

	return &CheckoutResult{
		RedirectURL: session.URL,
		AttemptID:   attempt.ID,
		SessionID:   session.ID,
	}, nil
}

// lockProducts share-locks every product in the cart, in id order, and
// replaces the preloaded rows with the locked ones.
func (s *service) lockProducts(ctx context.Context, tx *gorm.DB, items []models.CartItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	products := s.deps.Products.WithTx(tx)
	locked := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range ids {
		product, err := products.GetProductForShare(ctx, id)
		if pkgerrors.HasReason(err, catalog.ReasonProductNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		locked[id] = product
	}
	for i := range items {
		items[i].Product = locked[items[i].ProductID]
	}
	return nil
}

// priceCart re-validates every line against the live product row and prices the attempt.
func (s *service) priceCart(userID, cartID uuid.UUID, items []models.CartItem) (*models.CheckoutAttempt, error) {
	lines := make([]cart.Line, 0, len(items))
	gatewayLines := make([]models.CheckoutLine, 0, len(items)+1)

	for _, item := range items {
		product := item.Product
		if product == nil {
			return nil, errItemUnavailable(item.ProductID.String())
		}
		if !product.InStock || item.Quantity > product.StockQuantity {
			return nil, errItemUnavailable(product.Name)
		}

		productID := product.ID
		lines = append(lines, cart.Line{UnitPrice: product.Price, Quantity: item.Quantity})
		gatewayLines = append(gatewayLines, models.CheckoutLine{
			ProductID:       &productID,
			Name:            product.Name,
			UnitAmountCents: money.ToCents(product.Price),
			Quantity:        int64(item.Quantity),
			ImageURL:        catalog.ImageURL(s.cfg.ImageBaseURL, product.MainImage),
			Size:            deref(item.SelectedSize),
			Color:           deref(item.SelectedColor),
		})
	}

	totals := cart.ComputeTotals(lines, s.cfg.Policy)
	if totals.ShippingCents > 0 {
		gatewayLines = append(gatewayLines, models.CheckoutLine{
			Name:            shippingLineName,
			UnitAmountCents: totals.ShippingCents,
			Quantity:        1,
		})
	}

	return &models.CheckoutAttempt{
		ID:            uuid.New(),
		UserID:        userID,
		CartID:        cartID,
		Status:        enums.CheckoutAttemptPending,
		SubtotalCents: totals.SubtotalCents,
		ShippingCents: totals.ShippingCents,
		TotalCents:    totals.TotalCents,
		Currency:      s.cfg.Currency,
		LineItems:     gatewayLines,
	}, nil
}

// createSession keys the provider request on the attempt id, so one key
// always carries one set of parameters.
func (s *service) createSession(ctx context.Context, attempt *models.CheckoutAttempt) (*Session, error) {
	req := SessionRequest{
		Lines:      attempt.LineItems,
		Currency:   attempt.Currency,
		SuccessURL: s.cfg.BaseURL + s.cfg.SuccessPath,
		CancelURL:  s.cfg.BaseURL + s.cfg.CancelPath,
		Metadata: map[string]string{
			MetadataUserID:    attempt.UserID.String(),
			MetadataCartID:    attempt.CartID.String(),
			MetadataAttemptID: attempt.ID.String(),
		},
		IdempotencyKey: "checkout_attempt:" + attempt.ID.String(),
	}

	started := time.Now()
	session, err := s.deps.Gateway.CreateSession(ctx, req)
	if err == nil && (session == nil || session.URL == "") {
		err = fmt.Errorf("gateway returned no session url")
	}
	s.deps.Metrics.ObserveGateway(time.Since(started), err)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListAttempts returns the user's checkout attempts, newest first.
func (s *service) ListAttempts(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[AttemptView], error) {
	if userID == uuid.Nil {
		return nil, cart.ErrUnauthorized()
	}
	rows, next, err := s.deps.Attempts.ListByUser(ctx, userID, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout attempts")
	}

	page := &pagination.Page[AttemptView]{Items: make([]AttemptView, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		lines := row.LineItems
		if lines == nil {
			lines = []models.CheckoutLine{}
		}
		page.Items = append(page.Items, AttemptView{
			ID:            row.ID,
			CartID:        row.CartID,
			Status:        row.Status,
			SubtotalCents: row.SubtotalCents,
			ShippingCents: row.ShippingCents,
			TotalCents:    row.TotalCents,
			Currency:      row.Currency,
			LineItems:     lines,
			CompletedAt:   row.CompletedAt,
			CreatedAt:     row.CreatedAt,
		})
	}
	return page, nil
}

func (s *service) logField(ctx context.Context, key, value string) context.Context {
	if s.deps.Logger == nil {
		return ctx
	}
	return s.deps.Logger.WithField(ctx, key, value)
}

func (s *service) logInfo(ctx context.Context, msg string) {
	if s.deps.Logger != nil {
		s.deps.Logger.Info(ctx, msg)
	}
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.deps.Logger != nil {
		s.deps.Logger.Error(ctx, msg, err)
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
