package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	ReasonUserNotFound  pkgerrors.Reason = "user_not_found"
	ReasonEmailInUse    pkgerrors.Reason = "email_in_use"
	ReasonWeakPassword  pkgerrors.Reason = "password_too_short"
	ReasonInvalidFields pkgerrors.Reason = "invalid_profile"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the authenticated user's profile.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	password config.PasswordConfig
}

func NewService(repo *Repository, tx txRunner, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, password: password}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	return FromModel(user), nil
}

// UpdateProfile normalizes the input and applies it, checking email uniqueness in the same transaction.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	fields, err := s.buildUpdate(input)
	if err != nil {
		return nil, err
	}

	var updated *UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, userID)
		if err != nil {
			return mapUserError(err)
		}

		if email, ok := fields["email"].(string); ok && email != current.Email {
			existing, err := repo.FindByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != userID:
				return errEmailInUse()
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
			}
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, userID, fields); err != nil {
				if db.IsUniqueViolation(err, "") {
					return errEmailInUse()
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
			}
		}

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return mapUserError(err)
		}
		updated = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) buildUpdate(input UpdateProfileInput) (map[string]any, error) {
	fields := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalidField("name", "name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, invalidField("email", "email is invalid")
		}
		fields["email"] = email
	}
	if input.Phone != nil {
		if phone := strings.TrimSpace(*input.Phone); phone != "" {
			fields["phone"] = phone
		} else {
			fields["phone"] = nil
		}
	}
	if input.Password != nil {
		if password := strings.TrimSpace(*input.Password); password != "" {
			hash, err := security.HashPassword(password, s.password)
			if errors.Is(err, security.ErrPasswordTooShort) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("password must be at least %d characters", s.password.MinLength)).
					WithReason(ReasonWeakPassword)
			}
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
			}
			fields["password_hash"] = hash
		}
	}
	return fields, nil
}

func errEmailInUse() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "email already in use").WithReason(ReasonEmailInUse)
}

func invalidField(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithReason(ReasonInvalidFields).
		WithDetails(map[string]any{"field": field})
}

func mapUserError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found").WithReason(ReasonUserNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
