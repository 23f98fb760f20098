package store

import (
	"context"
	"fmt"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, order_number, customer_id, status, payment_status, subtotal, tax, delivery_fee, total, inventory_updated, idempotency_key, created_at, updated_at`

type lineItemRow struct {
	OrderID string `db:"order_id"`
	models.OrderLineItem
}

// CreateOrder inserts an order and its line items; the order number comes from a sequence
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, customer_id, status, payment_status, subtotal, tax, delivery_fee, total,
			inventory_updated, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING order_number, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.ID, order.CustomerID, order.Status, order.PaymentStatus, order.Subtotal, order.Tax,
		order.DeliveryFee, order.Total, order.InventoryUpdated, order.IdempotencyKey,
	).Scan(&order.OrderNumber, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return wrap("create order", err)
	}

	for i, line := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_line_items (order_id, position, menu_item_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, i, line.MenuItemID, line.Name, line.Price, line.Quantity)
		if err != nil {
			return wrap("create order line item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit order", err)
	}
	return nil
}

// GetOrder retrieves an order with its line items
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if notFound(err) {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get order", err)
	}

	if err := s.loadLineItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get order by idempotency key", err)
	}

	if err := s.loadLineItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) loadLineItems(ctx context.Context, order *models.Order) error {
	order.Items = []models.OrderLineItem{}
	err := s.db.SelectContext(ctx, &order.Items, `
		SELECT menu_item_id, name, price, quantity
		FROM order_line_items WHERE order_id = $1 ORDER BY position`, order.ID)
	if err != nil {
		return wrap("get order line items", err)
	}
	return nil
}

// ListOrders returns orders newest first, optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []interface{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY order_number DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, wrap("list orders", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderLineItem{}
	}

	inQuery, inArgs, err := sqlx.In(`
		SELECT order_id, menu_item_id, name, price, quantity
		FROM order_line_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build line item query: %w", err)
	}

	var rows []lineItemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(inQuery), inArgs...); err != nil {
		return nil, wrap("list order line items", err)
	}
	for _, row := range rows {
		if i, ok := index[row.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, row.OrderLineItem)
		}
	}
	return orders, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id)
	if err != nil {
		return wrap("update order status", err)
	}
	return requireRow(res, "order", id)
}

// SetInventoryUpdated sets the order's inventory flag and bumps updated_at
func (s *Store) SetInventoryUpdated(ctx context.Context, id string, updated bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET inventory_updated = $1, updated_at = NOW() WHERE id = $2",
		updated, id)
	if err != nil {
		return wrap("set inventory updated", err)
	}
	return requireRow(res, "order", id)
}
