package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
)

// stalledBroker accepts no events until released or its context ends
type stalledBroker struct {
	release chan struct{}
}

func (b *stalledBroker) PublishOrderPlaced(ctx context.Context, _ order.OrderPlacedEvent) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSubmit_StalledBrokerDoesNotFailOrDuplicateOrder(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(order.Models()...))

	broker := &stalledBroker{release: make(chan struct{})}
	log := logger.Discard()
	orders := order.NewService(db, broker, log)
	t.Cleanup(func() {
		close(broker.release)
		orders.Close()
		sqlDB.Close()
	})

	store := cart.NewStore()
	store.AddItem(cart.Product{ID: "vest", Name: "Designer Vest", UnitPrice: money.MustParse("75.00")}, 2)
	o := checkout.NewOrchestrator(store, checkout.Dependencies{
		Orders:        orders,
		Logger:        log,
		SubmitTimeout: time.Second,
	})
	require.NoError(t, o.UpdateForm(checkout.Form{
		FullName:      "Asha Rao",
		Email:         "asha@example.com",
		Phone:         "9845000000",
		AddressLine1:  "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		PostalCode:    "560001",
		PaymentMethod: order.PaymentMethodCOD,
	}))

	sub, err := o.Submit(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	outcome, err := sub.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepConfirmation, outcome.Next)
	assert.Equal(t, checkout.StateSucceeded, o.State())
	assert.True(t, store.Snapshot().IsEmpty())

	var count int64
	require.NoError(t, db.Model(&order.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
