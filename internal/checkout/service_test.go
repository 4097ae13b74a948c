package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubGateway struct {
	mu       sync.Mutex
	calls    int
	requests []SessionRequest
	session  *Session
	err      error
}

func (g *stubGateway) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

type fixture struct {
	conn     *gorm.DB
	carts    cart.Service
	checkout Service
	gateway  *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)

	carts, err := cart.NewService(cart.NewRepository(conn), catalog.NewRepository(conn), client, cart.DefaultPricingPolicy(), nil)
	require.NoError(t, err)

	gw := &stubGateway{session: &Session{ID: "cs_test_123", URL: "https://checkout.stripe.test/c/pay/cs_test_123"}}
	svc, err := NewService(Deps{
		Tx:       client,
		Carts:    cart.NewRepository(conn),
		Products: catalog.NewRepository(conn),
		Attempts: NewRepository(conn),
		Gateway:  gw,
	}, Config{
		BaseURL:      "https://shop.example.com/",
		SuccessPath:  "/cart?success=true",
		CancelPath:   "/cart?canceled=true",
		ImageBaseURL: "https://cdn.example.com/upload",
		Currency:     "USD",
		Policy:       cart.DefaultPricingPolicy(),
	})
	require.NoError(t, err)

	return &fixture{conn: conn, carts: carts, checkout: svc, gateway: gw}
}

func (f *fixture) attempts(t *testing.T, userID uuid.UUID) []models.CheckoutAttempt {
	t.Helper()
	var rows []models.CheckoutAttempt
	require.NoError(t, f.conn.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func TestBuildCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	shirt := dbtest.SeedProduct(t, f.conn, "Linen Shirt", "49.00", dbtest.WithSizes("M"), dbtest.WithImage("products/linen"))
	socks := dbtest.SeedProduct(t, f.conn, "Socks", "0.99")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: shirt.ID, Quantity: 1, Size: strPtr("M")})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: socks.ID, Quantity: 3})
	require.NoError(t, err)

	result, err := f.checkout.BuildCheckout(ctx, userID, BuildOptions{IdempotencyKey: "key-1"})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.stripe.test/c/pay/cs_test_123", result.RedirectURL)
	require.Equal(t, "cs_test_123", result.SessionID)

	require.Equal(t, 1, f.gateway.calls)
	req := f.gateway.requests[0]
	require.Equal(t, "usd", req.Currency)
	require.Equal(t, "https://shop.example.com/cart?success=true", req.SuccessURL)
	require.Equal(t, "https://shop.example.com/cart?canceled=true", req.CancelURL)
	require.Equal(t, userID.String(), req.Metadata[MetadataUserID])
	require.Equal(t, result.AttemptID.String(), req.Metadata[MetadataAttemptID])
	require.NotEmpty(t, req.Metadata[MetadataCartID])
	require.Equal(t, "checkout_attempt:"+result.AttemptID.String(), req.IdempotencyKey)

	require.Len(t, req.Lines, 3)
	assert.Equal(t, "Linen Shirt", req.Lines[0].Name)
	assert.EqualValues(t, 4900, req.Lines[0].UnitAmountCents)
	assert.Equal(t, "https://cdn.example.com/upload/products/linen.jpg", req.Lines[0].ImageURL)
	assert.Equal(t, "M", req.Lines[0].Size)
	assert.EqualValues(t, 99, req.Lines[1].UnitAmountCents)
	assert.EqualValues(t, 3, req.Lines[1].Quantity)
	assert.Equal(t, "Shipping", req.Lines[2].Name)
	assert.EqualValues(t, 1000, req.Lines[2].UnitAmountCents)
	assert.EqualValues(t, 1, req.Lines[2].Quantity)

	rows := f.attempts(t, userID)
	require.Len(t, rows, 1)
	require.Equal(t, enums.CheckoutAttemptOpen, rows[0].Status)
	require.Equal(t, "cs_test_123", *rows[0].GatewaySessionID)
	require.EqualValues(t, 5197, rows[0].SubtotalCents)
	require.EqualValues(t, 1000, rows[0].ShippingCents)
	require.EqualValues(t, 6197, rows[0].TotalCents)
	require.Len(t, rows[0].LineItems, 3)

	view, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2, "checkout must not modify the cart")
}

func TestBuildCheckoutFreeShippingOmitsShippingLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	coat := dbtest.SeedProduct(t, f.conn, "Coat", "150.00")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: coat.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, f.gateway.requests[0].Lines, 1)
	require.NotEmpty(t, f.gateway.requests[0].IdempotencyKey)
}

func TestBuildCheckoutRequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.BuildCheckout(context.Background(), uuid.Nil, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, cart.ReasonUnauthorized))
	require.Zero(t, f.gateway.calls)
}

func TestBuildCheckoutWithoutCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.BuildCheckout(context.Background(), uuid.New(), BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, cart.ReasonCartNotFound))
	require.Zero(t, f.gateway.calls)
}

func TestBuildCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Mug", "8.00")

	view, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.RemoveItem(ctx, userID, view.Items[0].ID)
	require.NoError(t, err)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, ReasonCartEmpty))
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	require.Zero(t, f.gateway.calls)
	require.Empty(t, f.attempts(t, userID))
}

func TestBuildCheckoutRejectsItemThatLostStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Lamp", "60.00", dbtest.WithStock(2))

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock_quantity", 0).Error)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, ReasonItemUnavailable))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, "Lamp", details["product_name"])
	require.Zero(t, f.gateway.calls)
	require.Empty(t, f.attempts(t, userID))
}

func TestBuildCheckoutGatewayFailureMarksAttemptFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Chair", "80.00")
	f.gateway.err = errors.New("stripe: connection reset")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, ReasonPaymentGatewayError))
	require.Equal(t, pkgerrors.CodePaymentGateway, pkgerrors.As(err).Code())

	rows := f.attempts(t, userID)
	require.Len(t, rows, 1)
	require.Equal(t, enums.CheckoutAttemptFailed, rows[0].Status)
	require.NotNil(t, rows[0].FailureReason)
	require.Contains(t, *rows[0].FailureReason, "connection reset")
	require.Nil(t, rows[0].GatewaySessionID)
}

func TestBuildCheckoutRetryAfterGatewayFailureUsesFreshProviderKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Stool", "45.00")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	f.gateway.err = errors.New("stripe: context deadline exceeded")
	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{IdempotencyKey: "k"})
	require.True(t, pkgerrors.HasReason(err, ReasonPaymentGatewayError))

	f.gateway.err = nil
	result, err := f.checkout.BuildCheckout(ctx, userID, BuildOptions{IdempotencyKey: "k"})
	require.NoError(t, err)

	require.Len(t, f.gateway.requests, 2)
	first, second := f.gateway.requests[0], f.gateway.requests[1]
	require.NotEqual(t, first.Metadata[MetadataAttemptID], second.Metadata[MetadataAttemptID])
	require.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
	require.Equal(t, "checkout_attempt:"+first.Metadata[MetadataAttemptID], first.IdempotencyKey)
	require.Equal(t, "checkout_attempt:"+result.AttemptID.String(), second.IdempotencyKey)
}

func TestBuildCheckoutRejectsLineWhoseProductWasDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Vase", "30.00")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec("DELETE FROM products WHERE id = ?", p.ID).Error)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, ReasonItemUnavailable))
	require.Zero(t, f.gateway.calls)
}

func TestNewServiceRequiresProductReader(t *testing.T) {
	client, conn := dbtest.Client(t)
	_, err := NewService(Deps{
		Tx:       client,
		Carts:    cart.NewRepository(conn),
		Attempts: NewRepository(conn),
		Gateway:  &stubGateway{},
	}, Config{})
	require.Error(t, err)
}

func TestBuildCheckoutGatewayWithoutURLFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Desk", "200.00")
	f.gateway.session = &Session{ID: "cs_test_nourl"}

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
	require.True(t, pkgerrors.HasReason(err, ReasonPaymentGatewayError))
}

func TestListAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Rug", "120.00")

	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.checkout.BuildCheckout(ctx, userID, BuildOptions{})
		require.NoError(t, err)
	}

	page, err := f.checkout.ListAttempts(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	for _, item := range page.Items {
		require.EqualValues(t, 12000, item.TotalCents)
		require.Equal(t, enums.CheckoutAttemptOpen, item.Status)
	}

	other, err := f.checkout.ListAttempts(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, other.Items)
	require.Empty(t, other.NextCursor)

	_, err = f.checkout.ListAttempts(ctx, userID, pagination.Params{Cursor: "%%%"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func strPtr(s string) *string { return &s }
