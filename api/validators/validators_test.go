package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type samplePayload struct {
	Name     string `json:"name" validate:"required,max=8"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	return typed.Code()
}

func TestDecodeJSONBody(t *testing.T) {
	cases := map[string]struct {
		body    string
		wantErr bool
	}{
		"valid":          {body: `{"name":"tee","quantity":2}`},
		"empty":          {body: ``, wantErr: true},
		"unknown field":  {body: `{"name":"tee","quantity":2,"price":1}`, wantErr: true},
		"trailing value": {body: `{"name":"tee","quantity":2}{"name":"x"}`, wantErr: true},
		"failed rule":    {body: `{"name":"","quantity":0}`, wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest samplePayload
			err := DecodeJSONBody(req, &dest)
			if !tc.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "tee", dest.Name)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
		})
	}
}

func TestDecodeJSONBodyReportsFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","quantity":0}`))
	var typed *pkgerrors.Error
	require.ErrorAs(t, DecodeJSONBody(req, &samplePayload{}), &typed)

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be at least 1", details["quantity"])
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	err := DecodeJSONBody(req, &samplePayload{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30", nil)
	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), "limit", 25, 1, 100)
	assert.Error(t, err)
	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=101", nil), "limit", 25, 1, 100)
	assert.Error(t, err)
}

func TestParseCursor(t *testing.T) {
	c, err := ParseCursor(httptest.NewRequest(http.MethodGet, "/?cursor=%20abc%20", nil), "cursor")
	require.NoError(t, err)
	assert.Equal(t, "abc", c)

	_, err = ParseCursor(httptest.NewRequest(http.MethodGet, "/?cursor="+strings.Repeat("x", 300), nil), "cursor")
	assert.Error(t, err)
}

func TestParsePathUUID(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("itemId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParsePathUUID(withParam("8f14e45f-ceea-467f-a0e6-5f6b0f1b2a3c"), "itemId")
	require.NoError(t, err)
	assert.Equal(t, "8f14e45f-ceea-467f-a0e6-5f6b0f1b2a3c", id.String())

	_, err = ParsePathUUID(withParam("nope"), "itemId")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Large", SanitizeString("  Large \n", 64))
	assert.Equal(t, "Navy", SanitizeString("Na\x00vy", 64))
	assert.Equal(t, "abc", SanitizeString("abcdef", 3))
	// "é" is two bytes; a cut inside it backs off to the rune start
	assert.Equal(t, "ab", SanitizeString("abé", 3))
	assert.Equal(t, "unbounded", SanitizeString("unbounded", 0))
}
