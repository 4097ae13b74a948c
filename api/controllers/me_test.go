package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubUserService struct {
	profile  *users.UserDTO
	err      error
	gotInput users.UpdateProfileInput
}

func (s *stubUserService) GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return s.profile, s.err
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.UserDTO, error) {
	s.gotInput = input
	return s.profile, s.err
}

func TestMeGet(t *testing.T) {
	userID := uuid.New()
	svc := &stubUserService{profile: &users.UserDTO{ID: userID, Email: "a@example.com"}}

	resp := httptest.NewRecorder()
	MeGet(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/me", "", userID, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "a@example.com", decodeData[users.UserDTO](t, resp).Email)
}

func TestMeUpdatePassesOnlyProvidedFields(t *testing.T) {
	svc := &stubUserService{profile: &users.UserDTO{ID: uuid.New()}}

	resp := httptest.NewRecorder()
	MeUpdate(svc, nil).ServeHTTP(resp, newRequest(http.MethodPatch, "/api/v1/me", `{"name":"Ada","phone":""}`, uuid.New(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.gotInput.Name)
	assert.Equal(t, "Ada", *svc.gotInput.Name)
	require.NotNil(t, svc.gotInput.Phone)
	assert.Nil(t, svc.gotInput.Email)
	assert.Nil(t, svc.gotInput.Password)
}

func TestMeUpdateEmailConflict(t *testing.T) {
	svc := &stubUserService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already in use").WithReason("email_in_use")}

	resp := httptest.NewRecorder()
	MeUpdate(svc, nil).ServeHTTP(resp, newRequest(http.MethodPatch, "/api/v1/me", `{"email":"taken@example.com"}`, uuid.New(), nil))

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "email_in_use", decodeError(t, resp).Error.Reason)
}
