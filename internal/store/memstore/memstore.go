// Package memstore is the in-memory implementation of the service stores.
// A single mutex serializes every read-modify-write, which gives the same
// no-lost-update guarantee the Postgres store gets from row locks.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const firstOrderNumber = 1001

type Store struct {
	mu            sync.Mutex
	inventory     map[string]*models.InventoryItem
	menu          map[string]*models.MenuItem
	orders        map[string]*models.Order
	transactions  []models.InventoryTransaction
	deductionKeys map[string]int
	notifications []models.Notification
	processed     map[string]string
	nextOrderNum  int64
	now           func() time.Time
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		inventory:     make(map[string]*models.InventoryItem),
		menu:          make(map[string]*models.MenuItem),
		orders:        make(map[string]*models.Order),
		deductionKeys: make(map[string]int),
		processed:     make(map[string]string),
		nextOrderNum:  firstOrderNumber,
		now:           time.Now,
	}
}

// CreateInventoryItem stores a new inventory item, assigning an id when empty
func (s *Store) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, exists := s.inventory[item.ID]; exists {
		return fmt.Errorf("inventory item %s already exists: %w", item.ID, models.ErrInvalidState)
	}

	now := s.now()
	item.CreatedAt, item.UpdatedAt = now, now
	item.Version = now.UnixMicro()
	item.RecomputeStatus()

	cp := *item
	s.inventory[item.ID] = &cp
	return nil
}

// GetInventoryItem retrieves an inventory item by ID
func (s *Store) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.inventory[id]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", id, models.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

// ListInventoryItems returns all inventory items ordered by name
func (s *Store) ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// DecrementInventory atomically checks and subtracts stock, appending an "out" ledger entry
func (s *Store) DecrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error) {
	return s.applyChange(change, models.TransactionOut)
}

// IncrementInventory atomically adds stock, appending an "in" ledger entry
func (s *Store) IncrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error) {
	return s.applyChange(change, models.TransactionIn)
}

func (s *Store) applyChange(change models.StockChange, typ models.TransactionType) (*models.StockChangeResult, error) {
	if !change.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.inventory[change.InventoryItemID]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", change.InventoryItemID, models.ErrNotFound)
	}

	if change.DeductionKey != "" {
		if idx, seen := s.deductionKeys[change.DeductionKey]; seen {
			tx := s.transactions[idx]
			return &models.StockChangeResult{
				Transaction:    &tx,
				Previous:       *item,
				Current:        *item,
				AlreadyApplied: true,
			}, nil
		}
	}

	previous := *item
	newQty := item.Quantity.Add(change.Amount)
	if typ == models.TransactionOut {
		if item.Quantity.LessThan(change.Amount) {
			return nil, fmt.Errorf("item %s has %s, needs %s: %w",
				item.ID, item.Quantity.String(), change.Amount.String(), models.ErrInsufficientStock)
		}
		newQty = item.Quantity.Sub(change.Amount)
	}

	now := s.now()
	item.Quantity = newQty
	item.UpdatedAt = now
	item.Version = nextVersion(item.Version, now)
	item.RecomputeStatus()

	tx := models.InventoryTransaction{
		InventoryItemID:  item.ID,
		Type:             typ,
		Quantity:         change.Amount,
		Reason:           change.Reason,
		PreviousQuantity: previous.Quantity,
		NewQuantity:      newQty,
		OrderID:          optional(change.OrderID),
		DeductionKey:     optional(change.DeductionKey),
		PerformedBy:      change.PerformedBy,
		CreatedAt:        now,
	}
	s.appendLocked(&tx)

	return &models.StockChangeResult{
		Transaction: &tx,
		Previous:    previous,
		Current:     *item,
	}, nil
}

// AppendTransaction appends a ledger entry; existing entries are never modified
func (s *Store) AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.DeductionKey != nil {
		if _, seen := s.deductionKeys[*entry.DeductionKey]; seen {
			return "", fmt.Errorf("deduction key %s already recorded: %w", *entry.DeductionKey, models.ErrInvalidState)
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.appendLocked(entry)
	return entry.ID, nil
}

func (s *Store) appendLocked(entry *models.InventoryTransaction) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	s.transactions = append(s.transactions, *entry)
	if entry.DeductionKey != nil {
		s.deductionKeys[*entry.DeductionKey] = len(s.transactions) - 1
	}
}

// GetTransactionsForItem returns an item's ledger entries, newest first
func (s *Store) GetTransactionsForItem(ctx context.Context, inventoryItemID string, limit, offset int) ([]models.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.InventoryTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].InventoryItemID == inventoryItemID {
			out = append(out, s.transactions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// CreateMenuItem stores a new menu item
func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := s.now()
	item.CreatedAt, item.UpdatedAt = now, now

	cp := *item
	cp.Ingredients = append([]models.Ingredient(nil), item.Ingredients...)
	s.menu[item.ID] = &cp
	return nil
}

// GetMenuItem retrieves a menu item by ID
func (s *Store) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.menu[id]
	if !ok {
		return nil, fmt.Errorf("menu item %s: %w", id, models.ErrNotFound)
	}
	cp := *item
	cp.Ingredients = append([]models.Ingredient(nil), item.Ingredients...)
	return &cp, nil
}

// ListMenuItems returns all menu items ordered by category then name
func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.MenuItem, 0, len(s.menu))
	for _, item := range s.menu {
		cp := *item
		cp.Ingredients = append([]models.Ingredient(nil), item.Ingredients...)
		items = append(items, cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// CreateOrder stores a new order and assigns its sequential order number
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.IdempotencyKey != nil {
		for _, existing := range s.orders {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *order.IdempotencyKey {
				return fmt.Errorf("idempotency key %s already used: %w", *order.IdempotencyKey, models.ErrInvalidState)
			}
		}
	}

	order.OrderNumber = s.nextOrderNum
	s.nextOrderNum++
	now := s.now()
	order.CreatedAt, order.UpdatedAt = now, now

	s.orders[order.ID] = copyOrder(order)
	return nil
}

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return copyOrder(order), nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			return copyOrder(order), nil
		}
	}
	return nil, nil
}

// ListOrders returns orders newest first, optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, *copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderNumber > orders[j].OrderNumber })
	return page(orders, limit, 0), nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = s.now()
	return nil
}

// SetInventoryUpdated sets the order's inventory flag and bumps updatedAt
func (s *Store) SetInventoryUpdated(ctx context.Context, id string, updated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	order.InventoryUpdated = updated
	order.UpdatedAt = s.now()
	return nil
}

// CreateNotification stores a notification
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.TransactionID != nil {
		for _, existing := range s.notifications {
			if existing.TransactionID != nil && *existing.TransactionID == *n.TransactionID {
				return "", fmt.Errorf("alert for transaction %s already recorded: %w", *n.TransactionID, models.ErrInvalidState)
			}
		}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications = append(s.notifications, *n)
	return n.ID, nil
}

// ListNotifications returns notifications newest first
func (s *Store) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if unreadOnly && s.notifications[i].IsRead {
			continue
		}
		out = append(out, s.notifications[i])
	}
	return page(out, limit, 0), nil
}

// GetNotificationByTransaction returns the alert raised by a ledger entry, or nil when there is none
func (s *Store) GetNotificationByTransaction(ctx context.Context, transactionID string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if tx := s.notifications[i].TransactionID; tx != nil && *tx == transactionID {
			n := s.notifications[i]
			return &n, nil
		}
	}
	return nil, nil
}

// MarkNotificationRead flags a notification as read
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
}

// IsEventProcessed checks if an event was already consumed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.processed[eventID]
	return ok, nil
}

// MarkEventProcessed records a consumed event
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed[eventID] = eventType
	return nil
}

// nextVersion follows the clock in microseconds and still grows when the clock stalls or steps back
func nextVersion(current int64, now time.Time) int64 {
	if v := now.UnixMicro(); v > current {
		return v
	}
	return current + 1
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderLineItem(nil), o.Items...)
	return &cp
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Quantity is a small helper for seed data and tests
func Quantity(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
