package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/session"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/handoff"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/money"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
}

type placedResponse struct {
	Order        checkout.Outcome `json:"order"`
	HandoffToken string           `json:"handoff_token"`
}

type fakeCheck struct{ err error }

func (f fakeCheck) Health(context.Context) error { return f.err }

type testEnv struct {
	t      *testing.T
	server *Server
	router *gin.Engine
	cookie *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(append([]interface{}{&catalog.Product{}}, order.Models()...)...))

	products := catalog.NewService(db)
	require.NoError(t, products.Upsert(context.Background(), []catalog.Product{
		{ID: "vest", Name: "Designer Vest", Price: money.MustParse("75.00"), IsFeatured: true, InStock: true, IsActive: true},
		{ID: "scarf", Name: "Silk Scarf", Price: money.MustParse("40.00"), InStock: true, IsActive: true},
		{ID: "sold-out", Name: "Linen Shirt", Price: money.MustParse("55.00"), InStock: false, IsActive: true},
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Server.RequestTimeout = 5 * time.Second

	log := logger.Discard()
	calc := pricing.NewCalculator(pricing.DefaultPolicy())
	orders := order.NewService(db, nil, log)
	payments := payment.NewService(db, payment.NewTestGateway(cfg.Checkout.PaymentDeclineCard, 0), log)
	sessions := session.NewManager(cfg.Session.TTL, func(store *cart.Store) *checkout.Orchestrator {
		return checkout.NewOrchestrator(store, checkout.Dependencies{
			Pricing:        calc,
			Orders:         orders,
			Payments:       payments,
			Logger:         log,
			SubmitTimeout:  cfg.Checkout.SubmitTimeout,
			PaymentTimeout: cfg.Checkout.PaymentTimeout,
		})
	}, log)

	server := NewServer(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Redis:    rdb,
		Catalog:  catalog.NewCachedLookup(products, rdb, time.Minute, log),
		Pricing:  calc,
		Orders:   orders,
		Sessions: sessions,
		Tokens:   handoff.NewManager(cfg.Checkout, cfg.App.Name),
	}, map[string]HealthChecker{"database": fakeCheck{}, "redis": fakeCheck{}})

	return &testEnv{t: t, server: server, router: server.Router()}
}

func (e *testEnv) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			e.cookie = c
		}
	}

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func checkoutForm(method string) gin.H {
	return gin.H{
		"fullName":      "Asha Rao",
		"email":         "asha@example.com",
		"phone":         "+91 98450 00000",
		"addressLine1":  "12 MG Road",
		"city":          "Bengaluru",
		"state":         "Karnataka",
		"postalCode":    "560001",
		"paymentMethod": method,
		"card": gin.H{
			"cardNumber": "4111 1111 1111 1111",
			"cardName":   "Asha Rao",
			"expiryDate": "12/29",
			"cvv":        "123",
		},
	}
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/v1/products/featured", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	featured := decodeData[[]catalog.Summary](t, body)
	require.Len(t, featured, 1)
	assert.Equal(t, "vest", featured[0].ID)

	rec, body = env.do(http.MethodGet, "/api/v1/products/scarf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Silk Scarf", decodeData[catalog.Product](t, body).Name)

	rec, body = env.do(http.MethodGet, "/api/v1/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", body.Error)
}

func TestCartRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.cookie)

	rec, body := env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[handlers.CartResponse](t, body)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, money.MustParse("150.00"), got.TotalAmount)
	assert.Equal(t, money.MustParse("162.00"), got.Pricing.GrandTotal)
	assert.True(t, got.FreeShipping)

	rec, body = env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", body.Error)

	rec, _ = env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "sold-out", "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = env.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 2, decodeData[handlers.CartResponse](t, body).TotalItems)

	rec, body = env.do(http.MethodPut, "/api/v1/cart/items/vest", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeData[handlers.CartResponse](t, body)
	assert.Empty(t, got.Items)
	assert.True(t, got.TotalAmount.IsZero())
	assert.True(t, got.Pricing.GrandTotal.IsZero())
	assert.False(t, got.FreeShipping)

	rec, _ = env.do(http.MethodPut, "/api/v1/cart/items/vest", gin.H{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(http.MethodDelete, "/api/v1/cart/items/vest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "scarf", "quantity": 2})
	rec, body = env.do(http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[handlers.CartResponse](t, body).Items)
}

func TestCartsAreScopedToSessions(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 1})

	env.cookie = nil
	_, body := env.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeData[handlers.CartResponse](t, body).Items)
}

func TestCheckout_ValidationKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 1})

	form := checkoutForm("cod")
	form["city"] = ""
	rec, body := env.do(http.MethodPost, "/api/v1/checkout", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]string{"city": "City is required"}, body.Fields)

	_, body = env.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 1, decodeData[handlers.CartResponse](t, body).TotalItems)

	_, body = env.do(http.MethodGet, "/api/v1/checkout", nil)
	assert.Equal(t, checkout.StateEditing, decodeData[checkout.Status](t, body).State)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodPost, "/api/v1/checkout", checkoutForm("cod"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Your cart is empty", body.Error)
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 2})

	_, body := env.do(http.MethodGet, "/api/v1/checkout/summary", nil)
	summary := decodeData[struct {
		Pricing pricing.Breakdown `json:"pricing"`
	}](t, body)
	assert.Equal(t, money.MustParse("12.00"), summary.Pricing.TaxAmount)

	rec, body := env.do(http.MethodPost, "/api/v1/checkout", checkoutForm("cod"))
	require.Equal(t, http.StatusCreated, rec.Code, body.Error)
	placed := decodeData[placedResponse](t, body)
	assert.Equal(t, checkout.StepConfirmation, placed.Order.Next)
	assert.Equal(t, money.MustParse("162.00"), placed.Order.Total)
	require.NotEmpty(t, placed.HandoffToken)

	_, body = env.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeData[handlers.CartResponse](t, body).Items)

	rec, body = env.do(http.MethodGet, "/api/v1/checkout/confirmation", nil, bearer(placed.HandoffToken)...)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	confirmation := decodeData[handlers.ConfirmationResponse](t, body)
	assert.Equal(t, placed.Order.OrderID, confirmation.OrderID)
	assert.Equal(t, "Cash on Delivery", confirmation.PaymentMethodLabel)
	assert.Equal(t, order.OrderStatusPending, confirmation.Status)

	rec, _ = env.do(http.MethodPost, "/api/v1/checkout/payment", nil, bearer(placed.HandoffToken)...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_CardPaymentWithDeclineAndRetry(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 2})

	rec, body := env.do(http.MethodPost, "/api/v1/checkout", checkoutForm("card"))
	require.Equal(t, http.StatusCreated, rec.Code, body.Error)
	placed := decodeData[placedResponse](t, body)
	assert.Equal(t, checkout.StepPayment, placed.Order.Next)

	rec, _ = env.do(http.MethodGet, "/api/v1/checkout/confirmation", nil, bearer(placed.HandoffToken)...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = env.do(http.MethodPost, "/api/v1/checkout", checkoutForm("card"))
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	resumed := decodeData[placedResponse](t, body)
	assert.Equal(t, placed.Order.OrderID, resumed.Order.OrderID)
	assert.Equal(t, checkout.StepPayment, resumed.Order.Next)
	placed.HandoffToken = resumed.HandoffToken

	declined := gin.H{"card": gin.H{
		"cardNumber": "4000 0000 0000 0002",
		"cardName":   "Asha Rao",
		"expiryDate": "12/29",
		"cvv":        "123",
	}}
	rec, body = env.do(http.MethodPost, "/api/v1/checkout/payment", declined, bearer(placed.HandoffToken)...)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, body.Error, "declined")

	rec, body = env.do(http.MethodPost, "/api/v1/checkout/payment", gin.H{"card": gin.H{"cardNumber": "12"}}, bearer(placed.HandoffToken)...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Card number must be 16 digits", body.Fields["cardNumber"])

	rec, body = env.do(http.MethodPost, "/api/v1/checkout/payment", nil, bearer(placed.HandoffToken)...)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	paid := decodeData[placedResponse](t, body)
	assert.Equal(t, checkout.StepConfirmation, paid.Order.Next)
	assert.NotEmpty(t, paid.Order.PaymentReference)

	rec, body = env.do(http.MethodGet, "/api/v1/checkout/confirmation?token="+paid.HandoffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	confirmation := decodeData[handlers.ConfirmationResponse](t, body)
	assert.Equal(t, "Credit Card", confirmation.PaymentMethodLabel)
	assert.Equal(t, order.OrderStatusProcessing, confirmation.Status)
	assert.Equal(t, order.PaymentStatusPaid, confirmation.PaymentStatus)
	assert.Equal(t, "162.00", confirmation.Total)
}

func TestCheckout_TokenIsBoundToSession(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": "vest", "quantity": 1})
	_, body := env.do(http.MethodPost, "/api/v1/checkout", checkoutForm("cod"))
	placed := decodeData[placedResponse](t, body)

	env.cookie = nil
	rec, _ := env.do(http.MethodGet, "/api/v1/checkout/confirmation", nil, bearer(placed.HandoffToken)...)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(http.MethodGet, "/api/v1/checkout/confirmation", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_CancelWithoutSubmission(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(http.MethodDelete, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec, _ = env.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.server.checks["redis"] = fakeCheck{err: errors.New("connection refused")}
	rec, body := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "redis ping failed", body.Error)
}

func TestStopWithoutStart(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.server.Stop(context.Background()))
}
