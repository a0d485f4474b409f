package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	applog "github.com/your-org/storefront/internal/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderPlacedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []OrderPlacedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OrderPlacedEvent(nil), p.events...)
}

// stalledPublisher never delivers; it holds on until its context ends
type stalledPublisher struct {
	gaveUp chan struct{}
}

func (p *stalledPublisher) PublishOrderPlaced(ctx context.Context, _ OrderPlacedEvent) error {
	<-ctx.Done()
	close(p.gaveUp)
	return ctx.Err()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func newTestService(t *testing.T, pub EventPublisher) (*Service, *gorm.DB) {
	db := newTestDB(t)
	svc := NewService(db, pub, applog.Discard())
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }
	return svc, db
}

func testDraft(id string, method PaymentMethod) Draft {
	items := []cart.LineItem{
		{ID: "hoodie", Name: "Classic Cotton Hoodie", UnitPrice: money.MustParse("120.00"), Quantity: 1},
		{ID: "socks", Name: "Wool Socks", UnitPrice: money.MustParse("15.00"), Quantity: 2},
	}
	breakdown := pricing.NewCalculator(pricing.DefaultPolicy()).ComputeBreakdown(money.MustParse("150.00"))
	addr := Address{FullName: "Asha Rao", AddressLine1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "India", Phone: "9800000000"}

	return NewDraft(DraftInput{
		ID:            id,
		Items:         items,
		Shipping:      addr,
		Billing:       addr,
		PaymentMethod: method,
		Contact:       Contact{Email: "asha@example.com", Phone: "9800000000"},
		Pricing:       breakdown,
		CreatedAt:     time.Now(),
	})
}

func TestSubmitOrder_PersistsPendingOrder(t *testing.T) {
	pub := &recordingPublisher{}
	svc, db := newTestService(t, pub)

	receipt, err := svc.SubmitOrder(context.Background(), testDraft("draft-1", PaymentMethodCOD))
	require.NoError(t, err)

	assert.Equal(t, "ORD-20261015-00001", receipt.OrderNumber)
	assert.Equal(t, money.MustParse("162.00"), receipt.Total)
	assert.Equal(t, PaymentMethodCOD, receipt.PaymentMethod)

	var stored Order
	require.NoError(t, db.Preload("Items").Preload("StatusHistory").First(&stored, receipt.OrderID).Error)
	assert.Equal(t, OrderStatusPending, stored.Status)
	assert.Equal(t, PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, money.MustParse("12.00"), stored.TaxAmount)
	assert.Equal(t, money.Zero, stored.ShippingAmount)
	assert.Equal(t, "Bengaluru", stored.ShippingAddress.City)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, money.MustParse("30.00"), stored.Items[1].TotalPrice)
	require.Len(t, stored.StatusHistory, 1)

	svc.Close()
	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, receipt.OrderNumber, events[0].OrderNumber)
	assert.Len(t, events[0].Items, 2)
}

func TestSubmitOrder_SameDraftIsIdempotent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, db := newTestService(t, pub)
	draft := testDraft("draft-dup", PaymentMethodCard)

	first, err := svc.SubmitOrder(context.Background(), draft)
	require.NoError(t, err)
	second, err := svc.SubmitOrder(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	var count int64
	require.NoError(t, db.Model(&Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	svc.Close()
	assert.Len(t, pub.published(), 1)
}

func TestSubmitOrder_InvalidDraftRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.SubmitOrder(context.Background(), NewDraft(DraftInput{ID: "empty", PaymentMethod: PaymentMethodCOD}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Contains(t, err.Error(), "no items")
}

func TestSubmitOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	svc, _ := newTestService(t, pub)

	receipt, err := svc.SubmitOrder(context.Background(), testDraft("draft-2", PaymentMethodCOD))
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.OrderNumber)
	svc.Close()
	assert.Len(t, pub.published(), 1)
}

func TestSubmitOrder_StalledBrokerDoesNotHoldSubmission(t *testing.T) {
	pub := &stalledPublisher{gaveUp: make(chan struct{})}
	svc, db := newTestService(t, pub)
	svc.publishTimeout = time.Second

	start := time.Now()
	receipt, err := svc.SubmitOrder(context.Background(), testDraft("draft-stalled", PaymentMethodCard))
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.OrderNumber)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	svc.Close()
	select {
	case <-pub.gaveUp:
	default:
		t.Fatal("publish was not bounded by its own timeout")
	}

	var count int64
	require.NoError(t, db.Model(&Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitOrder_CancelledContextRejected(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SubmitOrder(ctx, testDraft("draft-3", PaymentMethodCOD))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionRejected)
}

func TestGetOrderByNumber(t *testing.T) {
	svc, _ := newTestService(t, nil)
	receipt, err := svc.SubmitOrder(context.Background(), testDraft("draft-4", PaymentMethodCard))
	require.NoError(t, err)

	o, err := svc.GetOrderByNumber(context.Background(), receipt.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.True(t, o.IsPayable())

	_, err = svc.GetOrderByNumber(context.Background(), "ORD-00000000-99999")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTransitionStatus(t *testing.T) {
	svc, db := newTestService(t, nil)
	receipt, err := svc.SubmitOrder(context.Background(), testDraft("draft-5", PaymentMethodCOD))
	require.NoError(t, err)

	var o Order
	require.NoError(t, db.First(&o, receipt.OrderID).Error)

	at := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	require.NoError(t, TransitionStatus(db, &o, OrderStatusProcessing, "payment captured", at))
	assert.Equal(t, OrderStatusProcessing, o.Status)

	err = TransitionStatus(db, &o, OrderStatusDelivered, "", at)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var history []OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Order("id").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, OrderStatusProcessing, history[1].Status)
}

func TestDraft_AccessorsReturnCopies(t *testing.T) {
	d := testDraft("draft-6", PaymentMethodCOD)
	items := d.Items()
	items[0].Quantity = 40

	assert.Equal(t, 1, d.Items()[0].Quantity)
	assert.NoError(t, d.Validate())
}

func TestDraft_ValidateDetectsTamperedTotals(t *testing.T) {
	d := testDraft("draft-7", PaymentMethodCOD)
	in := DraftInput{
		ID:            d.ID(),
		Items:         d.Items(),
		PaymentMethod: d.PaymentMethod(),
		Contact:       d.Contact(),
		Pricing:       pricing.Breakdown{Subtotal: money.MustParse("1.00"), GrandTotal: money.MustParse("1.00")},
	}
	assert.ErrorContains(t, NewDraft(in).Validate(), "subtotal")
}

func TestPaymentMethodLabel(t *testing.T) {
	assert.Equal(t, "Credit Card", PaymentMethodCard.Label())
	assert.Equal(t, "Cash on Delivery", PaymentMethodCOD.Label())
	assert.False(t, PaymentMethod("upi").Valid())
}
