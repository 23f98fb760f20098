package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inventoryCols = []string{
	"id", "name", "category", "unit", "quantity", "unit_cost", "threshold", "reorder_quantity",
	"status", "expiry_date", "supplier_id", "version", "created_at", "updated_at",
}

var transactionCols = []string{
	"id", "inventory_item_id", "type", "quantity", "reason", "previous_quantity", "new_quantity",
	"order_id", "deduction_key", "performed_by", "created_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "postgres")), mock
}

func inventoryRow(qty, threshold string) *sqlmock.Rows {
	now := time.Now()
	status := models.ComputeStockStatus(decimal.RequireFromString(qty), decimal.RequireFromString(threshold))
	return sqlmock.NewRows(inventoryCols).AddRow(
		"cheese", "Cheese", "dairy", "kg", qty, "9.5", threshold, "10",
		string(status), nil, nil, int64(41), now, now)
}

func stockChange(amount string) models.StockChange {
	return models.StockChange{
		InventoryItemID: "cheese",
		Amount:          decimal.RequireFromString(amount),
		Reason:          "Used in order #1001",
		OrderID:         "o1",
		DeductionKey:    "o1:0:0",
		PerformedBy:     "system",
	}
}

func TestDecrementInventory(t *testing.T) {
	s, mock := newMockStore(t)
	updatedAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM inventory WHERE id = \$1 FOR UPDATE`).
		WithArgs("cheese").
		WillReturnRows(inventoryRow("2.4", "2"))
	mock.ExpectQuery(`SELECT .+ FROM inventory_transactions WHERE deduction_key = \$1`).
		WithArgs("o1:0:0").
		WillReturnRows(sqlmock.NewRows(transactionCols))
	mock.ExpectQuery(`UPDATE inventory SET quantity = \$1, status = \$2, version = .+ updated_at = clock_timestamp\(\) WHERE id = \$3 RETURNING updated_at, version`).
		WithArgs(sqlmock.AnyArg(), "low_stock", "cheese").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(updatedAt, int64(42)))
	mock.ExpectExec(`INSERT INTO inventory_transactions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := s.DecrementInventory(context.Background(), stockChange("0.5"))
	require.NoError(t, err)

	assert.False(t, res.AlreadyApplied)
	assert.Equal(t, "1.9", res.Current.Quantity.String())
	assert.Equal(t, models.StockStatusInStock, res.Previous.Status)
	assert.Equal(t, models.StockStatusLowStock, res.Current.Status)
	assert.Equal(t, models.TransactionOut, res.Transaction.Type)
	assert.Equal(t, "2.4", res.Transaction.PreviousQuantity.String())
	assert.Equal(t, "1.9", res.Transaction.NewQuantity.String())
	require.NotNil(t, res.Transaction.DeductionKey)
	assert.Equal(t, "o1:0:0", *res.Transaction.DeductionKey)
	assert.Equal(t, int64(41), res.Previous.Version)
	assert.Equal(t, int64(42), res.Current.Version)
	assert.Equal(t, updatedAt, res.Current.UpdatedAt)
	assert.Equal(t, updatedAt, res.Transaction.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStockReadsClockAfterRowLock(t *testing.T) {
	assert.Contains(t, updateStockSQL, "updated_at = clock_timestamp()")
	assert.NotContains(t, updateStockSQL, "NOW()")
	assert.Contains(t, updateStockSQL, "GREATEST(version + 1,")
	assert.Contains(t, updateStockSQL, "RETURNING updated_at, version")
}

func TestDecrementInventoryInsufficientStock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM inventory WHERE id = \$1 FOR UPDATE`).
		WithArgs("cheese").
		WillReturnRows(inventoryRow("0.1", "2"))
	mock.ExpectQuery(`SELECT .+ FROM inventory_transactions WHERE deduction_key = \$1`).
		WillReturnRows(sqlmock.NewRows(transactionCols))
	mock.ExpectRollback()

	_, err := s.DecrementInventory(context.Background(), stockChange("0.5"))
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementInventoryAlreadyApplied(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM inventory WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(inventoryRow("1.9", "2"))
	mock.ExpectQuery(`SELECT .+ FROM inventory_transactions WHERE deduction_key = \$1`).
		WithArgs("o1:0:0").
		WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
			"tx-1", "cheese", "out", "0.5", "Used in order #1001", "2.4", "1.9",
			"o1", "o1:0:0", "system", now))
	mock.ExpectRollback()

	res, err := s.DecrementInventory(context.Background(), stockChange("0.5"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyApplied)
	assert.Equal(t, "tx-1", res.Transaction.ID)
	assert.Equal(t, "1.9", res.Current.Quantity.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementInventoryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM inventory WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(inventoryCols))
	mock.ExpectRollback()

	_, err := s.DecrementInventory(context.Background(), stockChange("0.5"))
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementInventoryStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := s.DecrementInventory(context.Background(), stockChange("0.5"))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestGetOrder(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \$1`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_number", "customer_id", "status", "payment_status", "subtotal", "tax",
			"delivery_fee", "total", "inventory_updated", "idempotency_key", "created_at", "updated_at",
		}).AddRow("o1", 1001, "c1", "pending", "pending", "25", "2", "0", "27", false, nil, now, now))
	mock.ExpectQuery(`SELECT menu_item_id, name, price, quantity\s+FROM order_line_items WHERE order_id = \$1`).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "name", "price", "quantity"}).
			AddRow("menu-margherita", "Margherita Pizza", "12.5", 2))

	order, err := s.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), order.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetOrderByIdempotencyKeyMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM orders WHERE idempotency_key = \$1`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := s.GetOrderByIdempotencyKey(context.Background(), "k1")
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestSetInventoryUpdated(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE orders SET inventory_updated = \$1`).
		WithArgs(true, "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders SET inventory_updated = \$1`).
		WithArgs(true, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.SetInventoryUpdated(context.Background(), "o1", true))
	assert.ErrorIs(t, s.SetInventoryUpdated(context.Background(), "missing", true), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderDuplicateIdempotencyKey(t *testing.T) {
	s, mock := newMockStore(t)
	key := "k1"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key value"})
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), &models.Order{
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		IdempotencyKey: &key,
	})
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMenuItem(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO menu_items`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO menu_item_ingredients`).
		WithArgs("pizza", 0, "flour", sqlmock.AnyArg(), "kg").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO menu_item_ingredients`).
		WithArgs("pizza", 1, "cheese", sqlmock.AnyArg(), "kg").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.CreateMenuItem(context.Background(), &models.MenuItem{
		ID:        "pizza",
		Name:      "Pizza",
		Price:     decimal.RequireFromString("12.5"),
		Available: true,
		Ingredients: []models.Ingredient{
			{InventoryItemID: "flour", QuantityPerUnit: decimal.RequireFromString("0.25"), Unit: "kg"},
			{InventoryItemID: "cheese", QuantityPerUnit: decimal.RequireFromString("0.2"), Unit: "kg"},
		},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMenuItemsAttachesIngredients(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM menu_items ORDER BY category, name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "category", "available", "created_at", "updated_at"}).
			AddRow("latte", "Latte", "4.2", "drinks", true, now, now).
			AddRow("pizza", "Pizza", "12.5", "pizza", true, now, now))
	mock.ExpectQuery(`SELECT menu_item_id, inventory_item_id, quantity_per_unit, unit\s+FROM menu_item_ingredients WHERE menu_item_id IN \(\$1, \$2\)`).
		WithArgs("latte", "pizza").
		WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "inventory_item_id", "quantity_per_unit", "unit"}).
			AddRow("latte", "milk", "0.25", "l").
			AddRow("pizza", "flour", "0.25", "kg").
			AddRow("pizza", "cheese", "0.2", "kg"))

	items, err := s.ListMenuItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Len(t, items[0].Ingredients, 1)
	require.Len(t, items[1].Ingredients, 2)
	assert.Equal(t, "flour", items[1].Ingredients[0].InventoryItemID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionsForItemPaging(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM inventory_transactions WHERE inventory_item_id = \$1 ORDER BY created_at DESC, id OFFSET \$2 LIMIT \$3`).
		WithArgs("cheese", 5, 10).
		WillReturnRows(sqlmock.NewRows(transactionCols))

	txs, err := s.GetTransactionsForItem(context.Background(), "cheese", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedEvents(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO processed_events`).
		WithArgs("e1", models.EventTypeOrderConfirmRequested).
		WillReturnResult(sqlmock.NewResult(1, 1))

	processed, err := s.IsEventProcessed(context.Background(), "e1")
	require.NoError(t, err)
	assert.False(t, processed)
	assert.NoError(t, s.MarkEventProcessed(context.Background(), "e1", models.EventTypeOrderConfirmRequested))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapClassifiesErrors(t *testing.T) {
	assert.ErrorIs(t, wrap("x", &pq.Error{Code: uniqueViolation}), models.ErrInvalidState)
	assert.ErrorIs(t, wrap("x", &pq.Error{Code: checkViolation}), models.ErrInvalidInput)
	assert.ErrorIs(t, wrap("x", errors.New("boom")), models.ErrStoreUnavailable)
}

func TestCreateNotificationRecordsTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	txID := "tx-1"

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "inventory", "low_stock", "Low Stock Alert", "cheese is low", false, "cheese", "tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	id, err := s.CreateNotification(context.Background(), &models.Notification{
		Type:            models.NotificationTypeInventory,
		Kind:            models.AlertLowStock,
		Title:           "Low Stock Alert",
		Message:         "cheese is low",
		InventoryItemID: "cheese",
		TransactionID:   &txID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotificationByTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "type", "kind", "title", "message", "is_read", "inventory_item_id", "transaction_id", "created_at"}

	mock.ExpectQuery(`SELECT .+ FROM notifications WHERE transaction_id = \$1`).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"n1", "inventory", "low_stock", "Low Stock Alert", "cheese is low", false, "cheese", "tx-1", time.Now()))
	mock.ExpectQuery(`SELECT .+ FROM notifications WHERE transaction_id = \$1`).
		WithArgs("tx-2").
		WillReturnRows(sqlmock.NewRows(cols))

	n, err := s.GetNotificationByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "n1", n.ID)
	require.NotNil(t, n.TransactionID)
	assert.Equal(t, "tx-1", *n.TransactionID)

	n, err = s.GetNotificationByTransaction(context.Background(), "tx-2")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
