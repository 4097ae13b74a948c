package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedAttempt(t *testing.T, repo AttemptRepository) *models.CheckoutAttempt {
	t.Helper()
	attempt := &models.CheckoutAttempt{
		UserID:        uuid.New(),
		CartID:        uuid.New(),
		Status:        enums.CheckoutAttemptPending,
		SubtotalCents: 1000,
		ShippingCents: 1000,
		TotalCents:    2000,
		Currency:      "usd",
		LineItems:     []models.CheckoutLine{{Name: "Cap", UnitAmountCents: 1000, Quantity: 1}},
	}
	require.NoError(t, repo.Create(context.Background(), attempt))
	return attempt
}

func TestAttemptLifecycle(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	attempt := seedAttempt(t, repo)

	require.NoError(t, repo.MarkOpen(ctx, attempt.ID, "cs_123"))
	found, err := repo.FindBySessionID(ctx, "cs_123")
	require.NoError(t, err)
	require.Equal(t, attempt.ID, found.ID)
	require.Equal(t, enums.CheckoutAttemptOpen, found.Status)
	require.Len(t, found.LineItems, 1)
	require.Equal(t, "Cap", found.LineItems[0].Name)

	ok, err := repo.MarkCompleted(ctx, attempt.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkCompleted(ctx, attempt.ID, time.Now())
	require.NoError(t, err)
	require.False(t, ok, "completed attempts do not transition again")

	ok, err = repo.MarkExpired(ctx, attempt.ID)
	require.NoError(t, err)
	require.False(t, ok)

	found, err = repo.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutAttemptCompleted, found.Status)
	require.NotNil(t, found.CompletedAt)
}

func TestMarkFailedSkipsTerminalAttempts(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	attempt := seedAttempt(t, repo)

	ok, err := repo.MarkExpired(ctx, attempt.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.MarkFailed(ctx, attempt.ID, "late failure"))
	found, err := repo.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutAttemptExpired, found.Status)
	require.Nil(t, found.FailureReason)
}

func TestExpireStaleOnlyTouchesOldActiveAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	old := seedAttempt(t, repo)
	oldCompleted := seedAttempt(t, repo)
	fresh := seedAttempt(t, repo)

	_, err := repo.MarkCompleted(ctx, oldCompleted.ID, time.Now())
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, conn.Model(&models.CheckoutAttempt{}).
		Where("id IN ?", []uuid.UUID{old.ID, oldCompleted.ID}).
		Update("created_at", past).Error)

	n, err := repo.ExpireStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	for id, want := range map[uuid.UUID]enums.CheckoutAttemptStatus{
		old.ID:          enums.CheckoutAttemptExpired,
		oldCompleted.ID: enums.CheckoutAttemptCompleted,
		fresh.ID:        enums.CheckoutAttemptPending,
	} {
		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, found.Status)
	}
}
