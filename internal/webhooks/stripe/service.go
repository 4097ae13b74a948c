package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Attempts          checkout.AttemptRepository
	Carts             cart.CartRepository
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service applies Stripe checkout session outcomes to checkout attempts and carts.
type Service struct {
	attempts checkout.AttemptRepository
	carts    cart.CartRepository
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Attempts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attempt repo required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		attempts: params.Attempts,
		carts:    params.Carts,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload missing")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		// Delayed payment methods complete the session before the money arrives.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			s.info(ctx, fmt.Sprintf("checkout session %s completed unpaid; awaiting async payment", sess.ID))
			return nil
		}
		return s.complete(ctx, sess)
	case stripe.EventTypeCheckoutSessionExpired:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.expire(ctx, sess)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		sess, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.fail(ctx, sess)
	default:
		return nil
	}
}

// complete marks the attempt completed and empties the cart in one transaction.
func (s *Service) complete(ctx context.Context, sess *stripe.CheckoutSession) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		attempts := s.attempts.WithTx(tx)
		attempt, err := s.findAttempt(ctx, attempts, sess)
		if err != nil || attempt == nil {
			return err
		}

		transitioned, err := attempts.MarkCompleted(ctx, attempt.ID, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt completed")
		}
		if !transitioned {
			return nil
		}
		if err := s.carts.WithTx(tx).ClearItems(ctx, attempt.CartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		s.info(ctx, fmt.Sprintf("checkout attempt %s completed; cart %s cleared", attempt.ID, attempt.CartID))
		return nil
	})
}

func (s *Service) expire(ctx context.Context, sess *stripe.CheckoutSession) error {
	attempt, err := s.findAttempt(ctx, s.attempts, sess)
	if err != nil || attempt == nil {
		return err
	}
	if _, err := s.attempts.MarkExpired(ctx, attempt.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt expired")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, sess *stripe.CheckoutSession) error {
	attempt, err := s.findAttempt(ctx, s.attempts, sess)
	if err != nil || attempt == nil {
		return err
	}
	if err := s.attempts.MarkFailed(ctx, attempt.ID, "async payment failed"); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempt failed")
	}
	return nil
}

// findAttempt resolves the attempt from metadata, falling back to the session id.
// A nil attempt with a nil error means the session is not ours.
func (s *Service) findAttempt(ctx context.Context, repo checkout.AttemptRepository, sess *stripe.CheckoutSession) (*models.CheckoutAttempt, error) {
	var (
		attempt *models.CheckoutAttempt
		err     error
	)
	if id, parseErr := uuid.Parse(sess.Metadata[checkout.MetadataAttemptID]); parseErr == nil {
		attempt, err = repo.FindByID(ctx, id)
	} else {
		attempt, err = repo.FindBySessionID(ctx, sess.ID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.warn(ctx, fmt.Sprintf("no checkout attempt for stripe session %s", sess.ID))
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout attempt")
	}
	return attempt, nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if sess.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &sess, nil
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
