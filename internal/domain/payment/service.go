// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/money"
)

var (
	// ErrOrderNotPayable is returned for orders that are not awaiting a card payment
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
	// ErrAmountMismatch is returned when the capture amount differs from the order total
	ErrAmountMismatch = errors.New("payment amount does not match order total")
)

// CaptureRequest asks for the order's grand total to be charged to a card
type CaptureRequest struct {
	OrderNumber string
	Amount      money.Money
	Card        Card
}

// Result describes a successful capture
type Result struct {
	PaymentID         uint                `json:"-"`
	ProviderReference string              `json:"provider_reference"`
	Status            order.PaymentStatus `json:"status"`
	CardLast4         string              `json:"card_last4"`
	ProcessedAt       time.Time           `json:"processed_at"`
}

// Service captures card payments for placed orders
type Service struct {
	db      *gorm.DB
	gateway Gateway
	logger  *logrus.Logger
	now     func() time.Time
}

// NewService creates a new payment service
func NewService(db *gorm.DB, gateway Gateway, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		gateway: gateway,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Capture charges the card and records the attempt. A declined card is
// recorded as a failed payment and the order stays pending, so the shopper
// can try again.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*Result, error) {
	var o order.Order
	if err := s.db.WithContext(ctx).Where("order_number = ?", req.OrderNumber).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	if !o.IsPayable() {
		return nil, fmt.Errorf("%w: %s is %s/%s", ErrOrderNotPayable, o.OrderNumber, o.Status, o.PaymentStatus)
	}
	if req.Amount != o.TotalAmount {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrAmountMismatch, req.Amount, o.TotalAmount)
	}

	charge, chargeErr := s.gateway.Charge(ctx, ChargeRequest{
		Reference: o.OrderNumber,
		Amount:    o.TotalAmount,
		Currency:  o.Currency,
		Card:      req.Card,
	})

	now := s.now()
	payment := order.Payment{
		OrderID:       o.ID,
		PaymentMethod: order.PaymentMethodCard,
		Amount:        o.TotalAmount,
		Currency:      o.Currency,
		CardLast4:     req.Card.Last4(),
		ProcessedAt:   &now,
	}
	if chargeErr != nil {
		payment.Status = order.PaymentStatusFailed
		payment.FailureReason = truncate(chargeErr.Error(), 255)
	} else {
		payment.Status = order.PaymentStatusPaid
		payment.ProviderReference = charge.ProviderReference
	}

	// The charge already happened; record it even if the caller has gone.
	recordCtx := context.WithoutCancel(ctx)
	err := s.db.WithContext(recordCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := tx.Model(&o).Update("payment_status", payment.Status).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		if payment.Status == order.PaymentStatusPaid {
			return order.TransitionStatus(tx, &o, order.OrderStatusProcessing, "Payment captured", now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"amount":       o.TotalAmount.String(),
		"card_last4":   payment.CardLast4,
	})
	if chargeErr != nil {
		entry.WithError(chargeErr).Warn("payment capture failed")
		return nil, fmt.Errorf("payment capture failed: %w", chargeErr)
	}
	entry.WithField("provider_reference", payment.ProviderReference).Info("payment captured")

	return &Result{
		PaymentID:         payment.ID,
		ProviderReference: payment.ProviderReference,
		Status:            payment.Status,
		CardLast4:         payment.CardLast4,
		ProcessedAt:       now,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
