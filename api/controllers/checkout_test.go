package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubCheckoutService struct {
	result *checkoutsvc.CheckoutResult
	page   *pagination.Page[checkoutsvc.AttemptView]
	err    error

	gotOpts   checkoutsvc.BuildOptions
	gotParams pagination.Params
	calls     int
}

func (s *stubCheckoutService) BuildCheckout(ctx context.Context, userID uuid.UUID, opts checkoutsvc.BuildOptions) (*checkoutsvc.CheckoutResult, error) {
	s.calls++
	s.gotOpts = opts
	return s.result, s.err
}

func (s *stubCheckoutService) ListAttempts(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[checkoutsvc.AttemptView], error) {
	s.calls++
	s.gotParams = params
	return s.page, s.err
}

func TestCheckoutReturnsRedirectURL(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.CheckoutResult{
		RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_1",
		AttemptID:   uuid.New(),
		SessionID:   "cs_test_1",
	}}

	req := newRequest(http.MethodPost, "/api/v1/checkout", "", uuid.New(), nil)
	req.Header.Set("Idempotency-Key", "  key-1 ")
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	data := decodeData[map[string]any](t, resp)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", data["url"])
	assert.Equal(t, "key-1", svc.gotOpts.IdempotencyKey)
}

func TestCheckoutHidesGatewayFailure(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentGateway, "stripe: card_declined api key sk_test_123")}

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/checkout", "", uuid.New(), nil))

	require.Equal(t, http.StatusBadGateway, resp.Code)
	payload := decodeError(t, resp)
	assert.NotContains(t, payload.Error.Message, "sk_test")
}

func TestCheckoutRequiresUser(t *testing.T) {
	svc := &stubCheckoutService{}
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/checkout", "", uuid.Nil, nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, svc.calls)
}

func TestCheckoutAttemptsParsesPagination(t *testing.T) {
	svc := &stubCheckoutService{page: &pagination.Page[checkoutsvc.AttemptView]{Items: []checkoutsvc.AttemptView{}, NextCursor: "abc"}}

	resp := httptest.NewRecorder()
	CheckoutAttempts(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/checkout/attempts?limit=5&cursor=xyz", "", uuid.New(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "xyz"}, svc.gotParams)
	page := decodeData[pagination.Page[checkoutsvc.AttemptView]](t, resp)
	assert.Equal(t, "abc", page.NextCursor)
}

func TestCheckoutAttemptsRejectsBadLimit(t *testing.T) {
	for _, limit := range []string{"0", "101", "ten"} {
		svc := &stubCheckoutService{}
		resp := httptest.NewRecorder()
		CheckoutAttempts(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/checkout/attempts?limit="+limit, "", uuid.New(), nil))

		assert.Equal(t, http.StatusBadRequest, resp.Code, limit)
		assert.Zero(t, svc.calls, limit)
	}
}
