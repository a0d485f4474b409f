// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/handoff"
)

const orderFailedBanner = "There was an error placing your order. Please try again."

// OrderReader loads placed orders for the confirmation page
type OrderReader interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// CheckoutHandler handles the checkout, payment and confirmation steps
type CheckoutHandler struct {
	pricing *pricing.Calculator
	orders  OrderReader
	tokens  *handoff.Manager
	logger  *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(calculator *pricing.Calculator, orders OrderReader, tokens *handoff.Manager, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		pricing: calculator,
		orders:  orders,
		tokens:  tokens,
		logger:  logger,
	}
}

// PaymentRequest is the optional body of POST /checkout/payment. Without
// a card the one entered on the checkout form is charged.
type PaymentRequest struct {
	Card *checkout.CardDetails `json:"card"`
}

// ConfirmationResponse is shown on the confirmation page
type ConfirmationResponse struct {
	OrderID            string              `json:"order_id"`
	PaymentMethod      order.PaymentMethod `json:"payment_method"`
	PaymentMethodLabel string              `json:"payment_method_label"`
	Status             order.OrderStatus   `json:"status,omitempty"`
	PaymentStatus      order.PaymentStatus `json:"payment_status,omitempty"`
	Total              string              `json:"total,omitempty"`
	Currency           string              `json:"currency,omitempty"`
}

// GetSummary handles GET /checkout/summary
func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	state := middleware.CurrentSession(c).Cart.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"message": "Order summary retrieved successfully",
		"data": gin.H{
			"items":       state.Items,
			"total_items": state.TotalItems,
			"pricing":     h.pricing.ComputeBreakdown(state.TotalAmount),
		},
	})
}

// GetStatus handles GET /checkout
func (h *CheckoutHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout status retrieved successfully",
		"data":    middleware.CurrentSession(c).Checkout().Status(),
	})
}

// PlaceOrder handles POST /checkout. The handler waits for the submission
// while the request is alive; if the request gives up first the shopper
// polls GET /checkout.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess := middleware.CurrentSession(c)
	co := sess.BeginCheckout()
	if co.AwaitingPayment() {
		h.resumePayment(c, co, sess.ID)
		return
	}
	if err := co.UpdateForm(form); err != nil {
		h.respondError(c, err)
		return
	}

	sub, err := co.Submit(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	outcome, err := sub.Wait(c.Request.Context())
	if err != nil {
		if c.Request.Context().Err() != nil && errors.Is(err, c.Request.Context().Err()) {
			c.JSON(http.StatusAccepted, gin.H{
				"message": "Order submission is still in progress",
				"data":    co.Status(),
			})
			return
		}
		h.respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(outcome.OrderID, string(outcome.PaymentMethod), string(outcome.Next), sess.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data": gin.H{
			"order":         outcome,
			"handoff_token": token,
		},
	})
}

// resumePayment answers a repeated order placement while the placed card
// order still waits for payment: the same order is handed back.
func (h *CheckoutHandler) resumePayment(c *gin.Context, co *checkout.Orchestrator, sessionID string) {
	outcome, ok := co.Outcome()
	if !ok {
		h.respondError(c, checkout.ErrNotSubmitted)
		return
	}

	token, err := h.tokens.Issue(outcome.OrderID, string(outcome.PaymentMethod), string(outcome.Next), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order is awaiting payment",
		"data": gin.H{
			"order":         outcome,
			"handoff_token": token,
		},
	})
}

// CancelOrder handles DELETE /checkout
func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
	if err := middleware.CurrentSession(c).Checkout().Cancel(); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Order submission cancelled",
	})
}

// CapturePayment handles POST /checkout/payment
func (h *CheckoutHandler) CapturePayment(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	claims, ok := h.authorize(c, handoff.StepPayment, sess.ID)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	co := sess.Checkout()
	if current, placed := co.Outcome(); !placed || current.OrderID != claims.OrderID {
		c.JSON(http.StatusConflict, gin.H{
			"error": "This order is no longer awaiting payment in this session",
		})
		return
	}

	outcome, err := co.CapturePayment(c.Request.Context(), req.Card)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(outcome.OrderID, string(outcome.PaymentMethod), string(outcome.Next), sess.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment captured successfully",
		"data": gin.H{
			"order":         outcome,
			"handoff_token": token,
		},
	})
}

// GetConfirmation handles GET /checkout/confirmation
func (h *CheckoutHandler) GetConfirmation(c *gin.Context) {
	claims, ok := h.authorize(c, handoff.StepConfirmation, middleware.CurrentSession(c).ID)
	if !ok {
		return
	}

	method := order.PaymentMethod(claims.PaymentMethod)
	resp := ConfirmationResponse{
		OrderID:            claims.OrderID,
		PaymentMethod:      method,
		PaymentMethodLabel: method.Label(),
	}

	if h.orders != nil {
		placed, err := h.orders.GetOrderByNumber(c.Request.Context(), claims.OrderID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		resp.Status = placed.Status
		resp.PaymentStatus = placed.PaymentStatus
		resp.Total = placed.TotalAmount.String()
		resp.Currency = placed.Currency
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order confirmed",
		"data":    resp,
	})
}

func (h *CheckoutHandler) authorize(c *gin.Context, step, sessionID string) (*handoff.Claims, bool) {
	token := handoff.ExtractTokenFromHeader(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Handoff token required",
		})
		return nil, false
	}

	claims, err := h.tokens.Validate(token, step)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if claims.SessionID != sessionID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Handoff token does not belong to this session",
		})
		return nil, false
	}
	return claims, true
}

// respondError maps checkout, order and payment errors to responses
func (h *CheckoutHandler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var fields checkout.ValidationErrors
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Please correct the highlighted fields",
			"fields": fields,
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Your cart is empty",
		})
	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrAlreadySubmitted),
		errors.Is(err, checkout.ErrNoSubmissionInFlight),
		errors.Is(err, checkout.ErrNotSubmitted),
		errors.Is(err, checkout.ErrPaymentNotRequired),
		errors.Is(err, checkout.ErrPaymentInFlight),
		errors.Is(err, checkout.ErrSubmissionCancelled),
		errors.Is(err, payment.ErrOrderNotPayable),
		errors.Is(err, payment.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, checkout.ErrSubmissionTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":   orderFailedBanner,
			"details": "order submission timed out",
		})
	case errors.Is(err, payment.ErrPaymentDeclined):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Your card was declined. Please try another card.",
		})
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, handoff.ErrInvalidToken), errors.Is(err, handoff.ErrWrongStep):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired handoff token",
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "The payment service did not respond in time. Please try again.",
		})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("checkout request failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": orderFailedBanner,
		})
	}
}
