// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints for the caller's session
type CartHandler struct {
	catalog catalog.Lookup
	pricing *pricing.Calculator
}

// NewCartHandler creates a new cart handler
func NewCartHandler(lookup catalog.Lookup, calculator *pricing.Calculator) *CartHandler {
	return &CartHandler{
		catalog: lookup,
		pricing: calculator,
	}
}

// AddToCartRequest is the body of POST /cart/items
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:id
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

// CartResponse is the cart with its derived charges
type CartResponse struct {
	cart.State
	Pricing      pricing.Breakdown `json:"pricing"`
	FreeShipping bool              `json:"free_shipping"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    h.response(middleware.CurrentSession(c).Cart),
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
			})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve product",
		})
		return
	}
	if !product.InStock {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Product is out of stock",
		})
		return
	}

	store, ok := mutableCart(c)
	if !ok {
		return
	}
	store.AddItem(cartProduct(product), req.Quantity)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    h.response(store),
	})
}

// UpdateCartItem handles PUT /cart/items/:id. A quantity of zero removes
// the line.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	store, ok := mutableCart(c)
	if !ok {
		return
	}
	id := cart.ProductID(c.Param("id"))
	if _, ok := store.Snapshot().Find(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Item not in cart",
		})
		return
	}
	store.UpdateQuantity(id, *req.Quantity)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    h.response(store),
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	store, ok := mutableCart(c)
	if !ok {
		return
	}
	if !store.RemoveItem(cart.ProductID(c.Param("id"))) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Item not in cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    h.response(store),
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store, ok := mutableCart(c)
	if !ok {
		return
	}
	store.Clear()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
		"data":    h.response(store),
	})
}

func (h *CartHandler) response(store *cart.Store) CartResponse {
	state := store.Snapshot()
	breakdown := h.pricing.ComputeBreakdown(state.TotalAmount)
	return CartResponse{
		State:        state,
		Pricing:      breakdown,
		FreeShipping: !state.IsEmpty() && breakdown.FreeShipping(),
	}
}

// mutableCart returns the session cart, or answers 409 while an order is
// being placed from it
func mutableCart(c *gin.Context) (*cart.Store, bool) {
	sess := middleware.CurrentSession(c)
	if sess.Submitting() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Your order is being placed. The cart can be changed once it finishes.",
		})
		return nil, false
	}
	return sess.Cart, true
}

func cartProduct(p *catalog.Product) cart.Product {
	return cart.Product{
		ID:        cart.ProductID(p.ID),
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.ImageURL,
	}
}
