package models

import "github.com/shopspring/decimal"

// ComputeStockStatus derives the stock status from quantity and reorder threshold
func ComputeStockStatus(quantity, threshold decimal.Decimal) StockStatus {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return StockStatusOutOfStock
	case quantity.LessThanOrEqual(threshold):
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// RecomputeStatus refreshes the item's status from its current quantity
func (i *InventoryItem) RecomputeStatus() StockStatus {
	i.Status = ComputeStockStatus(i.Quantity, i.Threshold)
	return i.Status
}

// OrderStatus is the order lifecycle state
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus tracks payment collection for an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusReady:          3,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderStatusCancelled
}

// IsTerminal reports whether no further transition is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// AtLeast reports whether s has reached other in the forward lifecycle
func (s OrderStatus) AtLeast(other OrderStatus) bool {
	a, ok := orderStatusRank[s]
	b, ok2 := orderStatusRank[other]
	return ok && ok2 && a >= b
}

// CanTransitionTo allows a single forward step, or cancellation from any non-terminal state
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	from, ok := orderStatusRank[s]
	to, ok2 := orderStatusRank[next]
	return ok && ok2 && to == from+1
}
