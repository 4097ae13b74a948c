package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestGetOrCreateForUpdateIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.GetOrCreateForUpdate(ctx, userID)
	require.NoError(t, err)
	second, err := repo.GetOrCreateForUpdate(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = repo.FindByUser(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindItemMatchesNaturalKey(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	p := dbtest.SeedProduct(t, conn, "Hoodie", "45.00", dbtest.WithSizes("M"))

	cart, err := repo.GetOrCreateForUpdate(ctx, uuid.New())
	require.NoError(t, err)

	plain := &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}
	require.NoError(t, repo.CreateItem(ctx, plain))
	sized := &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1, SelectedSize: strPtr("M")}
	require.NoError(t, repo.CreateItem(ctx, sized))

	got, err := repo.FindItem(ctx, cart.ID, p.ID, Variant{})
	require.NoError(t, err)
	require.Equal(t, plain.ID, got.ID)

	got, err = repo.FindItem(ctx, cart.ID, p.ID, Variant{Size: "M"})
	require.NoError(t, err)
	require.Equal(t, sized.ID, got.ID)

	_, err = repo.FindItem(ctx, cart.ID, p.ID, Variant{Size: "M", Color: "Red"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}
	require.Error(t, repo.CreateItem(ctx, dup), "natural key must be unique")
}

func TestItemsAreScopedToCart(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	p := dbtest.SeedProduct(t, conn, "Scarf", "12.00")

	mine, err := repo.GetOrCreateForUpdate(ctx, uuid.New())
	require.NoError(t, err)
	theirs, err := repo.GetOrCreateForUpdate(ctx, uuid.New())
	require.NoError(t, err)

	item := &models.CartItem{CartID: theirs.ID, ProductID: p.ID, Quantity: 2}
	require.NoError(t, repo.CreateItem(ctx, item))

	_, err = repo.FindItemInCart(ctx, mine.ID, item.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	deleted, err := repo.DeleteItem(ctx, mine.ID, item.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	items, err := repo.ListItems(ctx, theirs.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	require.Equal(t, "Scarf", items[0].Product.Name)

	require.NoError(t, repo.ClearItems(ctx, theirs.ID))
	items, err = repo.ListItems(ctx, theirs.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}
