// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/session"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/handoff"
)

// Dependencies are the services the API routes are built from
type Dependencies struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Redis    *redis.Client
	Catalog  catalog.Lookup
	Pricing  *pricing.Calculator
	Orders   handlers.OrderReader
	Sessions *session.Manager
	Tokens   *handoff.Manager
}

// SetupCatalogRoutes sets up product routes
func SetupCatalogRoutes(rg *gin.RouterGroup, deps Dependencies) {
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)

	products := rg.Group("/products")
	{
		products.GET("/featured", catalogHandler.GetFeaturedProducts)
		products.GET("/:id", catalogHandler.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes. Every cart route runs inside the
// caller's session.
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartHandler := handlers.NewCartHandler(deps.Catalog, deps.Pricing)

	cart := rg.Group("/cart")
	cart.Use(sessionMiddleware(deps))
	{
		cart.GET("", cartHandler.GetCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.POST("/items", cartHandler.AddToCart)
		cart.PUT("/items/:id", cartHandler.UpdateCartItem)
		cart.DELETE("/items/:id", cartHandler.RemoveFromCart)
	}
}

// SetupCheckoutRoutes sets up checkout, payment and confirmation routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, deps Dependencies) {
	checkoutHandler := handlers.NewCheckoutHandler(deps.Pricing, deps.Orders, deps.Tokens, deps.Logger)

	checkout := rg.Group("/checkout")
	checkout.Use(sessionMiddleware(deps))
	{
		checkout.GET("", checkoutHandler.GetStatus)
		checkout.POST("", checkoutHandler.PlaceOrder)
		checkout.DELETE("", checkoutHandler.CancelOrder)
		checkout.GET("/summary", checkoutHandler.GetSummary)
		checkout.POST("/payment", checkoutHandler.CapturePayment)
		checkout.GET("/confirmation", checkoutHandler.GetConfirmation)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	SetupCatalogRoutes(rg, deps)
	SetupCartRoutes(rg, deps)
	SetupCheckoutRoutes(rg, deps)
}

func sessionMiddleware(deps Dependencies) gin.HandlerFunc {
	return middleware.Session(deps.Sessions, deps.Config.Session, deps.Config.Security.SecureCookies)
}
