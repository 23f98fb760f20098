package store

import (
	"context"
	"fmt"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const inventoryColumns = `id, name, category, unit, quantity, unit_cost, threshold, reorder_quantity, status, expiry_date, supplier_id, version, created_at, updated_at`

const transactionColumns = `id, inventory_item_id, type, quantity, reason, previous_quantity, new_quantity, order_id, deduction_key, performed_by, created_at`

// updateStockSQL runs under the row lock, so clock_timestamp is the time of the change itself.
// The version never falls behind the clock in microseconds, which keeps it ahead of mirror
// entries written before a restore or restart.
const updateStockSQL = `UPDATE inventory SET quantity = $1, status = $2, version = GREATEST(version + 1, (EXTRACT(EPOCH FROM clock_timestamp()) * 1000000)::BIGINT), updated_at = clock_timestamp() WHERE id = $3 RETURNING updated_at, version`

// CreateInventoryItem inserts a new inventory item, assigning an id when empty
func (s *Store) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.RecomputeStatus()

	query := `
		INSERT INTO inventory (id, name, category, unit, quantity, unit_cost, threshold, reorder_quantity,
			status, expiry_date, supplier_id)
		VALUES (:id, :name, :category, :unit, :quantity, :unit_cost, :threshold, :reorder_quantity,
			:status, :expiry_date, :supplier_id)
		RETURNING version, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, item)
	if err != nil {
		return wrap("create inventory item", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&item.Version, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return wrap("create inventory item", err)
		}
	}
	return nil
}

// GetInventoryItem retrieves an inventory item by ID
func (s *Store) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT "+inventoryColumns+" FROM inventory WHERE id = $1", id)
	if notFound(err) {
		return nil, fmt.Errorf("inventory item %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get inventory item", err)
	}
	return &item, nil
}

// ListInventoryItems returns all inventory items ordered by name
func (s *Store) ListInventoryItems(ctx context.Context) ([]models.InventoryItem, error) {
	items := []models.InventoryItem{}
	err := s.db.SelectContext(ctx, &items, "SELECT "+inventoryColumns+" FROM inventory ORDER BY name")
	if err != nil {
		return nil, wrap("list inventory items", err)
	}
	return items, nil
}

// DecrementInventory checks and subtracts stock under a row lock, appending an "out" ledger entry
// in the same transaction
func (s *Store) DecrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error) {
	return s.applyChange(ctx, change, models.TransactionOut)
}

// IncrementInventory adds stock under a row lock, appending an "in" ledger entry
func (s *Store) IncrementInventory(ctx context.Context, change models.StockChange) (*models.StockChangeResult, error) {
	return s.applyChange(ctx, change, models.TransactionIn)
}

func (s *Store) applyChange(ctx context.Context, change models.StockChange, typ models.TransactionType) (*models.StockChangeResult, error) {
	if !change.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrInvalidInput)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrap("begin transaction", err)
	}
	defer tx.Rollback()

	var item models.InventoryItem
	err = tx.GetContext(ctx, &item,
		"SELECT "+inventoryColumns+" FROM inventory WHERE id = $1 FOR UPDATE", change.InventoryItemID)
	if notFound(err) {
		return nil, fmt.Errorf("inventory item %s: %w", change.InventoryItemID, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("lock inventory item", err)
	}

	if change.DeductionKey != "" {
		existing, err := getTransactionByKey(ctx, tx, change.DeductionKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &models.StockChangeResult{
				Transaction:    existing,
				Previous:       item,
				Current:        item,
				AlreadyApplied: true,
			}, nil
		}
	}

	previous := item
	newQty := item.Quantity.Add(change.Amount)
	if typ == models.TransactionOut {
		if item.Quantity.LessThan(change.Amount) {
			return nil, fmt.Errorf("item %s has %s, needs %s: %w",
				item.ID, item.Quantity.String(), change.Amount.String(), models.ErrInsufficientStock)
		}
		newQty = item.Quantity.Sub(change.Amount)
	}

	item.Quantity = newQty
	item.RecomputeStatus()
	err = tx.QueryRowxContext(ctx, updateStockSQL, item.Quantity, item.Status, item.ID).
		Scan(&item.UpdatedAt, &item.Version)
	if err != nil {
		return nil, wrap("update inventory", err)
	}

	entry := &models.InventoryTransaction{
		ID:               uuid.New().String(),
		InventoryItemID:  item.ID,
		Type:             typ,
		Quantity:         change.Amount,
		Reason:           change.Reason,
		PreviousQuantity: previous.Quantity,
		NewQuantity:      newQty,
		OrderID:          nullable(change.OrderID),
		DeductionKey:     nullable(change.DeductionKey),
		PerformedBy:      change.PerformedBy,
		CreatedAt:        item.UpdatedAt,
	}
	if _, err := tx.NamedExecContext(ctx, insertTransactionSQL, entry); err != nil {
		return nil, wrap("append transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("commit stock change", err)
	}

	return &models.StockChangeResult{
		Transaction: entry,
		Previous:    previous,
		Current:     item,
	}, nil
}

func getTransactionByKey(ctx context.Context, tx *sqlx.Tx, key string) (*models.InventoryTransaction, error) {
	var entry models.InventoryTransaction
	err := tx.GetContext(ctx, &entry,
		"SELECT "+transactionColumns+" FROM inventory_transactions WHERE deduction_key = $1", key)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("check deduction key", err)
	}
	return &entry, nil
}
