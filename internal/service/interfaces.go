package service

import (
	"context"
	"time"

	"restaurant-service/internal/models"
)

// OrderStore persists orders and their line items
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// GetOrderByIdempotencyKey returns nil, nil when no order carries the key.
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	SetInventoryUpdated(ctx context.Context, id string, updated bool) error
}

// MenuCatalog holds menu items and their ingredient lists
type MenuCatalog interface {
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// InventoryStore holds inventory items. Quantity changes must be atomic
// read-check-write operations that append their ledger entry in the same unit of work.
type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error)
	ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error)
	DecrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error)
	IncrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error)
}

// TransactionLedger is the append-only inventory audit log
type TransactionLedger interface {
	AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) (string, error)
	GetTransactionsForItem(ctx context.Context, inventoryItemID string, limit, offset int) ([]models.InventoryTransaction, error)
}

// NotificationStore persists operator notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) (string, error)
	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	GetNotificationByTransaction(ctx context.Context, transactionID string) (*models.Notification, error)
}

// EventLog remembers consumed event ids so redelivered messages are skipped
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Stores bundles the data-access dependencies; both backends implement every interface
type Stores struct {
	Orders        OrderStore
	Menu          MenuCatalog
	Inventory     InventoryStore
	Ledger        TransactionLedger
	Notifications NotificationStore
	Events        EventLog
}

// OrderLocker provides per-order mutual exclusion across service instances
type OrderLocker interface {
	// LockOrder blocks until the lock is held or wait elapses; the returned func releases it.
	LockOrder(ctx context.Context, orderID string, ttl, wait time.Duration) (func(), error)
}

// StockMirror keeps a fast read copy of stock levels
type StockMirror interface {
	// MirrorStock ignores writes whose version is not newer than the stored one.
	MirrorStock(ctx context.Context, item *models.InventoryItem, version int64) error
	// GetStockLevel returns nil, nil when the item is not mirrored.
	GetStockLevel(ctx context.Context, inventoryItemID string) (*models.StockLevel, error)
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderConfirmRequested(ctx context.Context, event *models.OrderConfirmRequestedEvent) error
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error
}

// NotificationPublisher fans notifications out to connected dashboards
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}
