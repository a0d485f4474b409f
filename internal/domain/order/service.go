// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrSubmissionRejected wraps every failure to accept a draft
	ErrSubmissionRejected = errors.New("order submission rejected")
	// ErrOrderNotFound is returned for unknown order numbers
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid order status transition")
)

const defaultPublishTimeout = 5 * time.Second

// Service persists orders
type Service struct {
	db        *gorm.DB
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time

	publishTimeout time.Duration
	publishing     sync.WaitGroup
}

// NewService creates a new order service. A nil publisher disables events.
func NewService(db *gorm.DB, publisher EventPublisher, logger *logrus.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		db:        db,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },

		publishTimeout: defaultPublishTimeout,
	}
}

// SubmitOrder persists draft as a pending order and returns its receipt.
// Submitting the same draft twice returns the first receipt.
func (s *Service) SubmitOrder(ctx context.Context, draft Draft) (*Receipt, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}

	var order Order
	var duplicate bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Order
		err := tx.Where("reference = ?", draft.ID()).First(&existing).Error
		if err == nil {
			order = existing
			duplicate = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing order: %w", err)
		}

		order = newOrderFromDraft(draft)
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		now := s.now()
		order.OrderNumber = GenerateOrderNumber(order.ID, now)
		if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to update order number: %w", err)
		}

		history := OrderStatusHistory{
			OrderID:   order.ID,
			Status:    OrderStatusPending,
			Comment:   "Order created",
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("reference", draft.ID()).Warn("order submission failed")
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}

	if duplicate {
		s.logger.WithField("order_number", order.OrderNumber).Info("duplicate order submission")
		return receiptFor(&order), nil
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":   order.OrderNumber,
		"payment_method": order.PaymentMethod,
		"total":          order.TotalAmount.String(),
		"items":          len(order.Items),
	}).Info("order submitted")

	event := NewOrderPlacedEvent(&order, s.now())
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		s.publishPlaced(context.WithoutCancel(ctx), event)
	}()

	return receiptFor(&order), nil
}

// Close waits for order events that are still being published
func (s *Service) Close() {
	s.publishing.Wait()
}

// GetOrderByNumber loads an order with its items and payments
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("order_number = ?", orderNumber).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// TransitionStatus moves order to status inside tx and records history
func TransitionStatus(tx *gorm.DB, order *Order, status OrderStatus, comment string, at time.Time) error {
	if !order.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
	}

	updates := map[string]interface{}{
		"status": status,
	}
	switch status {
	case OrderStatusProcessing:
		updates["processed_at"] = at
	case OrderStatusShipped:
		updates["shipped_at"] = at
	case OrderStatusDelivered:
		updates["delivered_at"] = at
	}

	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	history := OrderStatusHistory{
		OrderID:   order.ID,
		Status:    status,
		Comment:   comment,
		CreatedAt: at,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	order.Status = status
	return nil
}

// publishPlaced runs outside the submission deadline
func (s *Service) publishPlaced(ctx context.Context, event OrderPlacedEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_number": event.OrderNumber,
			"event_id":     event.EventID,
		}).Error("failed to publish order placed event")
	}
}
