package service

import (
	"context"
	"fmt"
	"time"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	orders       OrderStore
	menu         MenuCatalog
	confirmation *ConfirmationService
	events       EventPublisher
	taxRate      decimal.Decimal
	deliveryFee  decimal.Decimal
	logger       *zap.Logger
}

// NewOrderService creates a new order service. events may be nil, which disables async confirmation.
func NewOrderService(
	stores Stores,
	confirmation *ConfirmationService,
	events EventPublisher,
	taxRate, deliveryFee decimal.Decimal,
) *OrderService {
	return &OrderService{
		orders:       stores.Orders,
		menu:         stores.Menu,
		confirmation: confirmation,
		events:       events,
		taxRate:      taxRate,
		deliveryFee:  deliveryFee,
		logger:       util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID     string             `json:"customerId" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Delivery       bool               `json:"delivery"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	MenuItemID string `json:"menuItemId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// StatusUpdateResult is returned by UpdateStatus. Confirmation is set when the
// transition ran the inventory deduction.
type StatusUpdateResult struct {
	Order        *models.Order  `json:"order"`
	Confirmation *ConfirmResult `json:"confirmation,omitempty"`
}

// CreateOrder snapshots menu names and prices into a new pending order.
// A repeated idempotency key returns the original order.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, bool, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID))
			return existing, false, nil
		}
	}

	if len(req.Items) == 0 {
		return nil, false, fmt.Errorf("order has no items: %w", models.ErrInvalidInput)
	}

	lines, err := s.snapshotLineItems(ctx, req.Items)
	if err != nil {
		return nil, false, err
	}

	order := &models.Order{
		CustomerID:    req.CustomerID,
		Items:         lines,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	s.price(order, req.Delivery)
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.String("total", order.Total.String()))

	if s.events != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCreated,
				Timestamp: time.Now(),
			},
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			Total:       order.Total.String(),
			ItemCount:   len(order.Items),
		}
		if err := s.events.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	return order, true, nil
}

// snapshotLineItems resolves each requested menu item and copies its name and price
func (s *OrderService) snapshotLineItems(ctx context.Context, items []OrderItemRequest) ([]models.OrderLineItem, error) {
	lines := make([]models.OrderLineItem, 0, len(items))
	for i, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %d: quantity must be at least 1: %w", i, models.ErrInvalidInput)
		}

		menuItem, err := s.menu.GetMenuItem(ctx, item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if !menuItem.Available {
			return nil, fmt.Errorf("menu item %s is not available: %w", menuItem.ID, models.ErrInvalidInput)
		}

		lines = append(lines, models.OrderLineItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Price:      menuItem.Price,
			Quantity:   item.Quantity,
		})
	}
	return lines, nil
}

// price fills subtotal, tax, delivery fee and total. Money is rounded to cents.
func (s *OrderService) price(order *models.Order, delivery bool) {
	subtotal := decimal.Zero
	for _, line := range order.Items {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order.Subtotal = subtotal.Round(2)
	order.Tax = subtotal.Mul(s.taxRate).Round(2)
	order.DeliveryFee = decimal.Zero
	if delivery {
		order.DeliveryFee = s.deliveryFee.Round(2)
	}
	order.Total = order.Subtotal.Add(order.Tax).Add(order.DeliveryFee)
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

// ListOrders returns recent orders, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, models.ErrInvalidInput)
	}
	return s.orders.ListOrders(ctx, status, limit)
}

// UpdateStatus moves an order through its lifecycle. Moving to confirmed runs the inventory deduction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to models.OrderStatus, performedBy string) (*StatusUpdateResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", util.AttrOrderID.String(orderID))
	defer span.End()

	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", to, models.ErrInvalidInput)
	}

	if to == models.OrderStatusConfirmed {
		return s.confirm(ctx, orderID, performedBy)
	}

	unlock, err := s.confirmation.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("cannot move order %s from %s to %s: %w", orderID, order.Status, to, models.ErrInvalidState)
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, to); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)),
		zap.String("performed_by", actor(performedBy)))
	s.confirmation.publishStatusChanged(ctx, orderID, order.Status, to)

	order, err = s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusUpdateResult{Order: order}, nil
}

func (s *OrderService) confirm(ctx context.Context, orderID, performedBy string) (*StatusUpdateResult, error) {
	result, err := s.confirmation.ConfirmOrder(ctx, orderID, performedBy)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusUpdateResult{Order: order, Confirmation: result}, nil
}

// CancelOrder cancels an order that has not reached a terminal state
func (s *OrderService) CancelOrder(ctx context.Context, orderID, performedBy string) (*models.Order, error) {
	res, err := s.UpdateStatus(ctx, orderID, models.OrderStatusCancelled, performedBy)
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

// RequestConfirmation queues the order for confirmation by the worker and returns the request event id
func (s *OrderService) RequestConfirmation(ctx context.Context, orderID, performedBy string) (string, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RequestConfirmation", util.AttrOrderID.String(orderID))
	defer span.End()

	if s.events == nil {
		return "", fmt.Errorf("async confirmation is disabled: %w", models.ErrStoreUnavailable)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Status == models.OrderStatusCancelled {
		return "", fmt.Errorf("order %s is cancelled: %w", orderID, models.ErrInvalidState)
	}

	event := &models.OrderConfirmRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderConfirmRequested,
			Timestamp: time.Now(),
		},
		OrderID:     orderID,
		RequestedBy: actor(performedBy),
	}
	if err := s.events.PublishOrderConfirmRequested(ctx, event); err != nil {
		return "", fmt.Errorf("failed to publish confirm request: %w: %w", err, models.ErrStoreUnavailable)
	}

	s.logger.Info("Order confirmation queued",
		zap.String("order_id", orderID),
		zap.String("event_id", event.EventID))
	return event.EventID, nil
}
