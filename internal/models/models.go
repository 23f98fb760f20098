package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is derived from quantity and reorder threshold
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// InventoryItem represents an ingredient or supply held in stock.
// Version grows with every quantity change and orders writes to the stock mirror.
type InventoryItem struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Category        string          `db:"category" json:"category"`
	Unit            string          `db:"unit" json:"unit"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost        decimal.Decimal `db:"unit_cost" json:"unitCost"`
	Threshold       decimal.Decimal `db:"threshold" json:"threshold"`
	ReorderQuantity decimal.Decimal `db:"reorder_quantity" json:"reorderQuantity"`
	Status          StockStatus     `db:"status" json:"status"`
	ExpiryDate      *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	SupplierID      *string         `db:"supplier_id" json:"supplierId,omitempty"`
	Version         int64           `db:"version" json:"version"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Ingredient is the amount of one inventory item consumed per unit of a menu item sold
type Ingredient struct {
	InventoryItemID string          `db:"inventory_item_id" json:"inventoryItemId"`
	QuantityPerUnit decimal.Decimal `db:"quantity_per_unit" json:"quantityPerUnit"`
	Unit            string          `db:"unit" json:"unit"`
}

// MenuItem represents a dish or drink on the menu
type MenuItem struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Category    string          `db:"category" json:"category"`
	Available   bool            `db:"available" json:"available"`
	Ingredients []Ingredient    `db:"-" json:"ingredients"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderLineItem carries name and price snapshots taken when the order was placed
type OrderLineItem struct {
	MenuItemID string          `db:"menu_item_id" json:"menuItemId"`
	Name       string          `db:"name" json:"name"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Quantity   int             `db:"quantity" json:"quantity"`
}

// Order represents a customer order
type Order struct {
	ID               string          `db:"id" json:"id"`
	OrderNumber      int64           `db:"order_number" json:"orderNumber"`
	CustomerID       string          `db:"customer_id" json:"customerId"`
	Items            []OrderLineItem `db:"-" json:"items"`
	Status           OrderStatus     `db:"status" json:"status"`
	PaymentStatus    PaymentStatus   `db:"payment_status" json:"paymentStatus"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax              decimal.Decimal `db:"tax" json:"tax"`
	DeliveryFee      decimal.Decimal `db:"delivery_fee" json:"deliveryFee"`
	Total            decimal.Decimal `db:"total" json:"total"`
	InventoryUpdated bool            `db:"inventory_updated" json:"inventoryUpdated"`
	IdempotencyKey   *string         `db:"idempotency_key" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// TransactionType is the direction of an inventory quantity change
type TransactionType string

const (
	TransactionIn  TransactionType = "in"
	TransactionOut TransactionType = "out"
)

// InventoryTransaction is an append-only ledger entry for one quantity change
type InventoryTransaction struct {
	ID               string          `db:"id" json:"id"`
	InventoryItemID  string          `db:"inventory_item_id" json:"inventoryItemId"`
	Type             TransactionType `db:"type" json:"type"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	Reason           string          `db:"reason" json:"reason"`
	PreviousQuantity decimal.Decimal `db:"previous_quantity" json:"previousQuantity"`
	NewQuantity      decimal.Decimal `db:"new_quantity" json:"newQuantity"`
	OrderID          *string         `db:"order_id" json:"orderId,omitempty"`
	DeductionKey     *string         `db:"deduction_key" json:"-"`
	PerformedBy      string          `db:"performed_by" json:"performedBy"`
	CreatedAt        time.Time       `db:"created_at" json:"timestamp"`
}

// NotificationType groups notifications shown on the dashboard
type NotificationType string

const NotificationTypeInventory NotificationType = "inventory"

// AlertKind tells a low-stock alert from an out-of-stock one
type AlertKind string

const (
	AlertLowStock   AlertKind = "low_stock"
	AlertOutOfStock AlertKind = "out_of_stock"
)

// Notification is an operator-facing alert. TransactionID links a stock alert to the
// ledger entry whose status transition raised it.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	Type            NotificationType `db:"type" json:"type"`
	Kind            AlertKind        `db:"kind" json:"kind"`
	Title           string           `db:"title" json:"title"`
	Message         string           `db:"message" json:"message"`
	IsRead          bool             `db:"is_read" json:"isRead"`
	InventoryItemID string           `db:"inventory_item_id" json:"inventoryItemId"`
	TransactionID   *string          `db:"transaction_id" json:"transactionId,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"timestamp"`
}

// StockChange describes a single ledger-recorded quantity change
type StockChange struct {
	InventoryItemID string
	Amount          decimal.Decimal
	Reason          string
	OrderID         string
	// DeductionKey makes a change idempotent: a second change with the same key is not applied.
	DeductionKey string
	PerformedBy  string
}

// StockChangeResult reports the item before and after a change
type StockChangeResult struct {
	Transaction    *InventoryTransaction
	Previous       InventoryItem
	Current        InventoryItem
	AlreadyApplied bool
}

// Stock level sources
const (
	StockSourceMirror = "mirror"
	StockSourceStore  = "store"
)

// StockLevel is the fast-read view of an item's quantity
type StockLevel struct {
	InventoryItemID string      `json:"inventoryItemId"`
	Quantity        string      `json:"quantity"`
	Status          StockStatus `json:"status"`
	Source          string      `json:"source"`
}
