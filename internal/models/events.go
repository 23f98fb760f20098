package models

import "time"

// Event types
const (
	EventTypeOrderCreated          = "ORDER_CREATED"
	EventTypeOrderConfirmRequested = "ORDER_CONFIRM_REQUESTED"
	EventTypeOrderConfirmed        = "ORDER_CONFIRMED"
	EventTypeOrderStatusChanged    = "ORDER_STATUS_CHANGED"
	EventTypeStockAlert            = "STOCK_ALERT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type; the broker copies it into a message header
func (e BaseEvent) Type() string {
	return e.EventType
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	Total       string `json:"total"`
	ItemCount   int    `json:"item_count"`
}

// OrderConfirmRequestedEvent asks the confirmation worker to run the deduction workflow
type OrderConfirmRequestedEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	RequestedBy string `json:"requested_by"`
}

// OrderConfirmedEvent published once an order's inventory has been processed
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID     string           `json:"order_id"`
	OrderNumber int64            `json:"order_number"`
	Deducted    int              `json:"deducted"`
	Failed      int              `json:"failed"`
	Outcomes    []OutcomeSummary `json:"outcomes,omitempty"`
}

// OutcomeSummary is the event form of a per-ingredient deduction outcome
type OutcomeSummary struct {
	InventoryItemID string `json:"inventory_item_id"`
	Outcome         string `json:"outcome"`
	Quantity        string `json:"quantity"`
}

// OrderStatusChangedEvent published on every status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// StockAlertEvent mirrors a low/out-of-stock notification onto the event stream
type StockAlertEvent struct {
	BaseEvent
	NotificationID  string `json:"notification_id"`
	InventoryItemID string `json:"inventory_item_id"`
	Kind            string `json:"kind"`
	Quantity        string `json:"quantity"`
	Threshold       string `json:"threshold"`
}
