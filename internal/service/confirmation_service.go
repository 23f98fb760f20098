package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OutcomeKind classifies what happened to one ingredient of one line item
type OutcomeKind string

const (
	OutcomeDeducted             OutcomeKind = "deducted"
	OutcomeAlreadyDeducted      OutcomeKind = "already_deducted"
	OutcomeMissingMenuItem      OutcomeKind = "missing_menu_item"
	OutcomeMissingInventoryItem OutcomeKind = "missing_inventory_item"
	OutcomeInsufficientStock    OutcomeKind = "insufficient_stock"
	OutcomeInvalidQuantity      OutcomeKind = "invalid_quantity"
)

const systemActor = "system"

// DeductionOutcome is the per-ingredient result of a confirmation
type DeductionOutcome struct {
	LineIndex         int              `json:"lineIndex"`
	MenuItemID        string           `json:"menuItemId"`
	MenuItemName      string           `json:"menuItemName,omitempty"`
	IngredientIndex   int              `json:"ingredientIndex"`
	InventoryItemID   string           `json:"inventoryItemId,omitempty"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Outcome           OutcomeKind      `json:"outcome"`
	Message           string           `json:"message,omitempty"`
	TransactionID     string           `json:"transactionId,omitempty"`
	RemainingQuantity *decimal.Decimal `json:"remainingQuantity,omitempty"`
	Alert             models.AlertKind `json:"alert,omitempty"`
}

// Failed reports whether the ingredient was left undeducted
func (o DeductionOutcome) Failed() bool {
	return o.Outcome != OutcomeDeducted && o.Outcome != OutcomeAlreadyDeducted
}

// ConfirmResult is returned by ConfirmOrder
type ConfirmResult struct {
	OrderID          string             `json:"orderId"`
	OrderNumber      int64              `json:"orderNumber"`
	Status           models.OrderStatus `json:"status"`
	AlreadyProcessed bool               `json:"alreadyProcessed"`
	Outcomes         []DeductionOutcome `json:"outcomes"`
}

// HasWarnings reports whether any ingredient was not deducted
func (r *ConfirmResult) HasWarnings() bool {
	for _, o := range r.Outcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}

// Warnings lists operator-facing messages for every undeducted ingredient
func (r *ConfirmResult) Warnings() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Failed() {
			out = append(out, o.Message)
		}
	}
	return out
}

func (r *ConfirmResult) count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome == kind {
			n++
		}
	}
	return n
}

// StockNotifier emits transition-triggered stock alerts
type StockNotifier interface {
	NotifyLowStock(ctx context.Context, item *models.InventoryItem, transactionID string) (*models.Notification, error)
	NotifyOutOfStock(ctx context.Context, item *models.InventoryItem, transactionID string) (*models.Notification, error)
}

// ConfirmationService runs the order confirmation / inventory deduction workflow
type ConfirmationService struct {
	orders    OrderStore
	menu      MenuCatalog
	inventory InventoryStore
	notifier  StockNotifier
	locker    OrderLocker
	mirror    StockMirror
	events    EventPublisher
	lockTTL   time.Duration
	lockWait  time.Duration
	logger    *zap.Logger
}

// NewConfirmationService creates a confirmation service. mirror and events may be nil.
func NewConfirmationService(
	stores Stores,
	notifier StockNotifier,
	locker OrderLocker,
	mirror StockMirror,
	events EventPublisher,
	lockTTL, lockWait time.Duration,
) *ConfirmationService {
	return &ConfirmationService{
		orders:    stores.Orders,
		menu:      stores.Menu,
		inventory: stores.Inventory,
		notifier:  notifier,
		locker:    locker,
		mirror:    mirror,
		events:    events,
		lockTTL:   lockTTL,
		lockWait:  lockWait,
		logger:    util.GetLogger(),
	}
}

// ConfirmOrder marks the order confirmed and deducts its ingredients from inventory exactly once.
// Per-ingredient failures are reported in the result; only order-level problems return an error.
func (cs *ConfirmationService) ConfirmOrder(ctx context.Context, orderID, performedBy string) (*ConfirmResult, error) {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.ConfirmOrder", util.AttrOrderID.String(orderID))
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderConfirmationLatency.Observe(time.Since(start).Seconds())
	}()

	if orderID == "" {
		return nil, fmt.Errorf("order id is required: %w", models.ErrInvalidInput)
	}
	performedBy = actor(performedBy)

	unlock, err := cs.lockOrder(ctx, orderID)
	if err != nil {
		util.OrderConfirmationsTotal.WithLabelValues("locked").Inc()
		util.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	order, err := cs.orders.GetOrder(ctx, orderID)
	if err != nil {
		util.OrderConfirmationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	switch {
	case order.Status == models.OrderStatusCancelled:
		util.OrderConfirmationsTotal.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("order %s is cancelled: %w", orderID, models.ErrInvalidState)
	case order.Status == models.OrderStatusPending:
		if err := cs.orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusConfirmed); err != nil {
			util.OrderConfirmationsTotal.WithLabelValues(resultLabel(err)).Inc()
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		util.OrderStatusTransitionsTotal.WithLabelValues(string(models.OrderStatusConfirmed)).Inc()
		cs.publishStatusChanged(ctx, orderID, order.Status, models.OrderStatusConfirmed)
		order.Status = models.OrderStatusConfirmed
	}

	result := &ConfirmResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Outcomes:    []DeductionOutcome{},
	}

	if order.InventoryUpdated {
		cs.logger.Info("Inventory already updated for order, skipping deduction",
			zap.String("order_id", orderID),
			zap.Int64("order_number", order.OrderNumber))
		util.OrderConfirmationsTotal.WithLabelValues("noop").Inc()
		result.AlreadyProcessed = true
		return result, nil
	}

	for li, line := range order.Items {
		outcomes, err := cs.deductLineItem(ctx, order, li, line, performedBy)
		result.Outcomes = append(result.Outcomes, outcomes...)
		if err != nil {
			util.OrderConfirmationsTotal.WithLabelValues(resultLabel(err)).Inc()
			util.RecordError(span, err)
			return nil, err
		}
	}

	if err := cs.orders.SetInventoryUpdated(ctx, orderID, true); err != nil {
		util.OrderConfirmationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, fmt.Errorf("failed to set inventory updated: %w", err)
	}

	if result.HasWarnings() {
		util.OrderConfirmationsTotal.WithLabelValues("partial").Inc()
		cs.logger.Warn("Order confirmed with undeducted ingredients",
			zap.String("order_id", orderID),
			zap.Int64("order_number", order.OrderNumber),
			zap.Strings("warnings", result.Warnings()))
	} else {
		util.OrderConfirmationsTotal.WithLabelValues("success").Inc()
		cs.logger.Info("Order confirmed and inventory deducted",
			zap.String("order_id", orderID),
			zap.Int64("order_number", order.OrderNumber),
			zap.Int("deductions", len(result.Outcomes)))
	}

	cs.publishConfirmed(ctx, order, result)
	return result, nil
}

func (cs *ConfirmationService) lockOrder(ctx context.Context, orderID string) (func(), error) {
	return cs.locker.LockOrder(ctx, orderID, cs.lockTTL, cs.lockWait)
}

// deductLineItem processes one line item's ingredients in document order.
// It returns an error only for failures that make continuing unsafe.
func (cs *ConfirmationService) deductLineItem(ctx context.Context, order *models.Order, li int, line models.OrderLineItem, performedBy string) ([]DeductionOutcome, error) {
	menuItem, err := cs.menu.GetMenuItem(ctx, line.MenuItemID)
	if errors.Is(err, models.ErrNotFound) {
		util.InventoryDeductionsTotal.WithLabelValues(string(OutcomeMissingMenuItem)).Inc()
		cs.logger.Warn("Menu item not found, skipping line item",
			zap.String("order_id", order.ID),
			zap.String("menu_item_id", line.MenuItemID))
		return []DeductionOutcome{{
			LineIndex:       li,
			MenuItemID:      line.MenuItemID,
			MenuItemName:    line.Name,
			IngredientIndex: -1,
			Outcome:         OutcomeMissingMenuItem,
			Message:         fmt.Sprintf("menu item %q (%s) no longer exists; its ingredients were not deducted", line.Name, line.MenuItemID),
		}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item %s: %w", line.MenuItemID, err)
	}

	units := decimal.NewFromInt(int64(line.Quantity))
	outcomes := make([]DeductionOutcome, 0, len(menuItem.Ingredients))

	for ii, ing := range menuItem.Ingredients {
		outcome := DeductionOutcome{
			LineIndex:       li,
			MenuItemID:      menuItem.ID,
			MenuItemName:    menuItem.Name,
			IngredientIndex: ii,
			InventoryItemID: ing.InventoryItemID,
			Quantity:        ing.QuantityPerUnit.Mul(units),
		}

		if !outcome.Quantity.IsPositive() {
			outcome.Outcome = OutcomeInvalidQuantity
			outcome.Message = fmt.Sprintf("%s: computed quantity %s for %s is not positive",
				menuItem.Name, outcome.Quantity.String(), ing.InventoryItemID)
			outcomes = append(outcomes, cs.record(outcome))
			continue
		}

		start := time.Now()
		res, err := cs.inventory.DecrementInventory(ctx, models.StockChange{
			InventoryItemID: ing.InventoryItemID,
			Amount:          outcome.Quantity,
			Reason:          fmt.Sprintf("Used in order #%d", order.OrderNumber),
			OrderID:         order.ID,
			DeductionKey:    DeductionKey(order.ID, li, ii),
			PerformedBy:     performedBy,
		})
		util.InventoryDecrementLatency.Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, models.ErrNotFound):
			outcome.Outcome = OutcomeMissingInventoryItem
			outcome.Message = fmt.Sprintf("%s: inventory item %s does not exist", menuItem.Name, ing.InventoryItemID)
		case errors.Is(err, models.ErrInsufficientStock):
			outcome.Outcome = OutcomeInsufficientStock
			outcome.Message = fmt.Sprintf("%s: insufficient stock (%v)", menuItem.Name, err)
		case err != nil:
			return outcomes, fmt.Errorf("failed to decrement inventory %s: %w", ing.InventoryItemID, err)
		case res.AlreadyApplied:
			outcome.Outcome = OutcomeAlreadyDeducted
			outcome.TransactionID = res.Transaction.ID
			remaining := res.Current.Quantity
			outcome.RemainingQuantity = &remaining
			if outcome.Alert, err = recoverAlert(ctx, cs.notifier, res); err != nil {
				return outcomes, err
			}
		default:
			outcome.Outcome = OutcomeDeducted
			outcome.TransactionID = res.Transaction.ID
			remaining := res.Current.Quantity
			outcome.RemainingQuantity = &remaining
			mirrorItem(ctx, cs.mirror, &res.Current)
			// The inventory flag stays unset so a retry reaches the already-applied branch and raises the alert.
			if outcome.Alert, err = notifyTransition(ctx, cs.notifier, res); err != nil {
				return outcomes, err
			}
		}

		outcomes = append(outcomes, cs.record(outcome))
	}

	return outcomes, nil
}

func (cs *ConfirmationService) record(o DeductionOutcome) DeductionOutcome {
	util.InventoryDeductionsTotal.WithLabelValues(string(o.Outcome)).Inc()
	if o.Failed() {
		cs.logger.Warn("Ingredient not deducted",
			zap.String("menu_item_id", o.MenuItemID),
			zap.String("inventory_item_id", o.InventoryItemID),
			zap.String("outcome", string(o.Outcome)),
			zap.String("quantity", o.Quantity.String()))
	}
	return o
}

func (cs *ConfirmationService) publishStatusChanged(ctx context.Context, orderID string, from, to models.OrderStatus) {
	if cs.events == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
	}
	if err := cs.events.PublishOrderStatusChanged(ctx, event); err != nil {
		cs.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

func (cs *ConfirmationService) publishConfirmed(ctx context.Context, order *models.Order, result *ConfirmResult) {
	if cs.events == nil {
		return
	}

	summaries := make([]models.OutcomeSummary, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		summaries = append(summaries, models.OutcomeSummary{
			InventoryItemID: o.InventoryItemID,
			Outcome:         string(o.Outcome),
			Quantity:        o.Quantity.String(),
		})
	}

	event := &models.OrderConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderConfirmed,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Deducted:    result.count(OutcomeDeducted) + result.count(OutcomeAlreadyDeducted),
		Failed:      len(result.Warnings()),
		Outcomes:    summaries,
	}
	if err := cs.events.PublishOrderConfirmed(ctx, event); err != nil {
		cs.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}
}

// DeductionKey identifies one ingredient of one line item of one order
func DeductionKey(orderID string, lineIndex, ingredientIndex int) string {
	return fmt.Sprintf("%s:%d:%d", orderID, lineIndex, ingredientIndex)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
