package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/storefront/internal/pkg/money"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Product{}))
	return db
}

func seedProducts(t *testing.T, svc *Service) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []Product{
		{ID: "hoodie", Name: "Classic Cotton Hoodie", Category: "Men", Price: money.MustParse("120.00"), IsFeatured: true, InStock: true, IsActive: true, CreatedAt: base},
		{ID: "dress", Name: "Summer Dress", Category: "Women", Price: money.MustParse("75.00"), IsFeatured: true, InStock: true, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: "socks", Name: "Wool Socks", Category: "Accessories", Price: money.MustParse("9.99"), InStock: false, IsActive: true, CreatedAt: base},
		{ID: "retired", Name: "Retired Jacket", Category: "Men", Price: money.MustParse("200.00"), IsFeatured: true, IsActive: false, CreatedAt: base.Add(2 * time.Hour)},
	}
	require.NoError(t, svc.Upsert(context.Background(), products))
}

func TestService_GetProduct(t *testing.T) {
	svc := NewService(newTestDB(t))
	seedProducts(t, svc)
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, "dress")
	require.NoError(t, err)
	assert.Equal(t, "Summer Dress", p.Name)
	assert.Equal(t, money.MustParse("75.00"), p.Price)

	socks, err := svc.GetProduct(ctx, "socks")
	require.NoError(t, err)
	assert.False(t, socks.InStock)

	_, err = svc.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.GetProduct(ctx, "retired")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_GetFeaturedProducts(t *testing.T) {
	svc := NewService(newTestDB(t))
	seedProducts(t, svc)

	featured, err := svc.GetFeaturedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, "dress", featured[0].ID)
	assert.Equal(t, "hoodie", featured[1].ID)
}

func TestService_UpsertUpdatesExisting(t *testing.T) {
	svc := NewService(newTestDB(t))
	seedProducts(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, []Product{
		{ID: "dress", Name: "Summer Dress", Category: "Women", Price: money.MustParse("65.00"), InStock: true, IsActive: true},
	}))

	p, err := svc.GetProduct(ctx, "dress")
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("65.00"), p.Price)
	assert.False(t, p.IsFeatured)
}
