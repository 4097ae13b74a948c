package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Hosted checkout sessions live for 24h; attempts older than this never complete.
const defaultAttemptMaxAge = 25 * time.Hour

type staleAttemptExpirer interface {
	ExpireStale(ctx context.Context, before time.Time) (int64, error)
}

type AttemptExpiryJobParams struct {
	Attempts staleAttemptExpirer
	Logger   *logger.Logger
	MaxAge   time.Duration
	Now      func() time.Time
}

// attemptExpiryJob expires pending and open checkout attempts whose session
// can no longer be paid. Carts are left alone.
type attemptExpiryJob struct {
	attempts staleAttemptExpirer
	logg     *logger.Logger
	maxAge   time.Duration
	now      func() time.Time
}

func NewAttemptExpiryJob(params AttemptExpiryJobParams) (Job, error) {
	if params.Attempts == nil {
		return nil, errors.New("attempt repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultAttemptMaxAge
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &attemptExpiryJob{
		attempts: params.Attempts,
		logg:     params.Logger,
		maxAge:   maxAge,
		now:      now,
	}, nil
}

func (j *attemptExpiryJob) Name() string { return "checkout-attempt-expiry" }

func (j *attemptExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.maxAge)
	expired, err := j.attempts.ExpireStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire attempts before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if j.logg != nil && expired > 0 {
		ctx = j.logg.WithField(ctx, "expired", expired)
		j.logg.Info(ctx, "cron.attempts.expired")
	}
	return nil
}
