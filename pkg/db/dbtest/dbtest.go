// Package dbtest opens isolated in-memory SQLite databases carrying the
// storefront schema for repository and service tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// schema mirrors pkg/migrate/migrations in SQLite syntax.
var schema = []string{
	`CREATE TABLE users (
		id text PRIMARY KEY,
		name text,
		email text NOT NULL,
		phone text,
		image text,
		password_hash text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_users_email ON users (email)`,
	`CREATE TABLE products (
		id text PRIMARY KEY,
		name text NOT NULL,
		slug text NOT NULL,
		description text,
		price numeric NOT NULL,
		original_price numeric,
		stock_quantity integer NOT NULL DEFAULT 0,
		in_stock boolean NOT NULL DEFAULT 0,
		sizes text NOT NULL DEFAULT '[]',
		colors text NOT NULL DEFAULT '[]',
		main_image text NOT NULL DEFAULT '',
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_products_slug ON products (slug)`,
	`CREATE TABLE carts (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_carts_user_id ON carts (user_id)`,
	`CREATE TABLE cart_items (
		id text PRIMARY KEY,
		cart_id text NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id text NOT NULL,
		quantity integer NOT NULL CHECK (quantity >= 1),
		selected_size text,
		selected_color text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE UNIQUE INDEX ux_cart_items_natural_key
		ON cart_items (cart_id, product_id, COALESCE(selected_size, ''), COALESCE(selected_color, ''))`,
	`CREATE TABLE checkout_attempts (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		cart_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		gateway_session_id text,
		subtotal_cents integer NOT NULL,
		shipping_cents integer NOT NULL,
		total_cents integer NOT NULL,
		currency text NOT NULL,
		line_items text,
		failure_reason text,
		completed_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE wishlist_items (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		product_id text NOT NULL,
		created_at datetime
	)`,
	`CREATE UNIQUE INDEX wishlist_items_user_product_key ON wishlist_items (user_id, product_id)`,
}

// Open returns a fresh database. A single connection serializes
// transactions the way row locks do on Postgres.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a *db.Client.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}

// ProductOption mutates a seeded product.
type ProductOption func(*models.Product)

func WithStock(qty int) ProductOption {
	return func(p *models.Product) {
		p.StockQuantity = qty
		p.InStock = qty > 0
	}
}

func OutOfStock() ProductOption {
	return func(p *models.Product) { p.InStock = false }
}

func WithSizes(sizes ...string) ProductOption {
	return func(p *models.Product) { p.Sizes = sizes }
}

func WithColors(colors ...string) ProductOption {
	return func(p *models.Product) { p.Colors = colors }
}

func WithImage(ref string) ProductOption {
	return func(p *models.Product) { p.MainImage = ref }
}

// SeedProduct inserts an in-stock product with ten units.
func SeedProduct(t testing.TB, conn *gorm.DB, name, price string, opts ...ProductOption) models.Product {
	t.Helper()
	p := models.Product{
		ID:            uuid.New(),
		Name:          name,
		Slug:          name + "-" + uuid.NewString()[:8],
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
		InStock:       true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedUser inserts a user with the given email.
func SeedUser(t testing.TB, conn *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{ID: uuid.New(), Email: email}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
