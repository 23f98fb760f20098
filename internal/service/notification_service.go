package service

import (
	"context"
	"fmt"
	"time"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService creates stock alerts and fans them out
type NotificationService struct {
	store     NotificationStore
	publisher NotificationPublisher
	events    EventPublisher
	logger    *zap.Logger
}

// NewNotificationService creates a notification service. publisher and events may be nil.
func NewNotificationService(store NotificationStore, publisher NotificationPublisher, events EventPublisher) *NotificationService {
	return &NotificationService{
		store:     store,
		publisher: publisher,
		events:    events,
		logger:    util.GetLogger(),
	}
}

// NotifyLowStock records one low-stock alert for the item. A non-empty transactionID ties the
// alert to the ledger entry that raised it, and a second call for that entry returns the first alert.
func (ns *NotificationService) NotifyLowStock(ctx context.Context, item *models.InventoryItem, transactionID string) (*models.Notification, error) {
	return ns.create(ctx, item, transactionID, models.AlertLowStock,
		"Low Stock Alert",
		fmt.Sprintf("%s is running low: %s %s left (reorder point %s %s)",
			item.Name, item.Quantity.String(), item.Unit, item.Threshold.String(), item.Unit))
}

// NotifyOutOfStock records one out-of-stock alert for the item, keyed like NotifyLowStock
func (ns *NotificationService) NotifyOutOfStock(ctx context.Context, item *models.InventoryItem, transactionID string) (*models.Notification, error) {
	return ns.create(ctx, item, transactionID, models.AlertOutOfStock,
		"Out of Stock Alert",
		fmt.Sprintf("%s is out of stock. Reorder %s %s.",
			item.Name, item.ReorderQuantity.String(), item.Unit))
}

func (ns *NotificationService) create(ctx context.Context, item *models.InventoryItem, transactionID string, kind models.AlertKind, title, message string) (*models.Notification, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.Create", util.AttrInventoryItemID.String(item.ID))
	defer span.End()

	if transactionID != "" {
		existing, err := ns.store.GetNotificationByTransaction(ctx, transactionID)
		if err != nil {
			util.RecordError(span, err)
			return nil, fmt.Errorf("failed to look up alert for transaction %s: %w", transactionID, err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	n := &models.Notification{
		Type:            models.NotificationTypeInventory,
		Kind:            kind,
		Title:           title,
		Message:         message,
		InventoryItemID: item.ID,
		CreatedAt:       time.Now(),
	}
	if transactionID != "" {
		n.TransactionID = &transactionID
	}

	id, err := ns.store.CreateNotification(ctx, n)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = id

	util.StockAlertsTotal.WithLabelValues(string(kind)).Inc()
	ns.logger.Info("Stock alert created",
		zap.String("notification_id", id),
		zap.String("inventory_item_id", item.ID),
		zap.String("kind", string(kind)),
		zap.String("quantity", item.Quantity.String()))

	if ns.publisher != nil {
		if err := ns.publisher.PublishNotification(ctx, n); err != nil {
			util.NotificationPublishFailedTotal.Inc()
			ns.logger.Error("Failed to publish notification", zap.String("notification_id", id), zap.Error(err))
		}
	}

	if ns.events != nil {
		event := &models.StockAlertEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockAlert,
				Timestamp: time.Now(),
			},
			NotificationID:  id,
			InventoryItemID: item.ID,
			Kind:            string(kind),
			Quantity:        item.Quantity.String(),
			Threshold:       item.Threshold.String(),
		}
		if err := ns.events.PublishStockAlert(ctx, event); err != nil {
			ns.logger.Error("Failed to publish StockAlert event", zap.Error(err))
		}
	}

	return n, nil
}

// List returns recent notifications
func (ns *NotificationService) List(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	return ns.store.ListNotifications(ctx, unreadOnly, limit)
}

// MarkRead flags a notification as read
func (ns *NotificationService) MarkRead(ctx context.Context, id string) error {
	return ns.store.MarkNotificationRead(ctx, id)
}

// notifyTransition emits an alert only when the item's status newly becomes low or out of stock
func notifyTransition(ctx context.Context, notifier StockNotifier, res *models.StockChangeResult) (models.AlertKind, error) {
	if notifier == nil || res.Current.Status == res.Previous.Status {
		return "", nil
	}
	return raiseAlert(ctx, notifier, &res.Current, res.Current.Status, res.Transaction.ID)
}

// recoverAlert raises the alert an already-applied ledger entry should have produced, for when
// the first attempt deducted stock but failed to record the alert. The notifier returns the
// existing alert when one was recorded.
func recoverAlert(ctx context.Context, notifier StockNotifier, res *models.StockChangeResult) (models.AlertKind, error) {
	tx := res.Transaction
	if notifier == nil || tx == nil || tx.Type != models.TransactionOut {
		return "", nil
	}
	before := models.ComputeStockStatus(tx.PreviousQuantity, res.Current.Threshold)
	after := models.ComputeStockStatus(tx.NewQuantity, res.Current.Threshold)
	if before == after || res.Current.Status == models.StockStatusInStock {
		return "", nil
	}
	return raiseAlert(ctx, notifier, &res.Current, after, tx.ID)
}

func raiseAlert(ctx context.Context, notifier StockNotifier, item *models.InventoryItem, status models.StockStatus, transactionID string) (models.AlertKind, error) {
	var err error
	var kind models.AlertKind
	switch status {
	case models.StockStatusLowStock:
		kind = models.AlertLowStock
		_, err = notifier.NotifyLowStock(ctx, item, transactionID)
	case models.StockStatusOutOfStock:
		kind = models.AlertOutOfStock
		_, err = notifier.NotifyOutOfStock(ctx, item, transactionID)
	default:
		return "", nil
	}

	if err != nil {
		util.GetLogger().Error("Failed to emit stock alert",
			zap.String("inventory_item_id", item.ID),
			zap.String("transaction_id", transactionID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return "", fmt.Errorf("failed to raise %s alert for %s: %w", kind, item.ID, err)
	}
	return kind, nil
}
