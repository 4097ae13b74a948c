package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront-test", ExpirationMinutes: 15}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard})
}

func mintToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, now time.Time) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{UserID: userID, Email: "shopper@example.com"})
	require.NoError(t, err)
	return token
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestAuthInjectsUserID(t *testing.T) {
	userID := uuid.New()
	token := mintToken(t, testJWT, userID, time.Now())

	var seen uuid.UUID
	handler := Auth(testJWT, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserUUIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, userID, seen)
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	userID := uuid.New()
	otherIssuer := testJWT
	otherIssuer.Issuer = "someone-else"

	cases := map[string]string{
		"missing header": "",
		"empty bearer":   "Bearer ",
		"garbage":        "Bearer not-a-jwt",
		"expired":        "Bearer " + mintToken(t, testJWT, userID, time.Now().Add(-time.Hour)),
		"wrong issuer":   "Bearer " + mintToken(t, otherIssuer, userID, time.Now()),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			handler := Auth(testJWT, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Equal(t, string(pkgerrors.CodeUnauthorized), decodeErrorCode(t, resp.Body.Bytes()))
		})
	}
}

func TestUserUUIDFromContextWithoutUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, uuid.Nil, UserUUIDFromContext(req.Context()))
	assert.Equal(t, uuid.Nil, UserUUIDFromContext(WithUserID(req.Context(), "not-a-uuid")))
}
