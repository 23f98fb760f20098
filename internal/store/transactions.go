package store

import (
	"context"
	"time"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
)

const insertTransactionSQL = `
	INSERT INTO inventory_transactions (id, inventory_item_id, type, quantity, reason, previous_quantity,
		new_quantity, order_id, deduction_key, performed_by, created_at)
	VALUES (:id, :inventory_item_id, :type, :quantity, :reason, :previous_quantity,
		:new_quantity, :order_id, :deduction_key, :performed_by, :created_at)`

// AppendTransaction appends a ledger entry. A reused deduction key fails with ErrInvalidState.
func (s *Store) AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if _, err := s.db.NamedExecContext(ctx, insertTransactionSQL, entry); err != nil {
		return "", wrap("append transaction", err)
	}
	return entry.ID, nil
}

// GetTransactionsForItem returns an item's ledger entries, newest first
func (s *Store) GetTransactionsForItem(ctx context.Context, inventoryItemID string, limit, offset int) ([]models.InventoryTransaction, error) {
	query := "SELECT " + transactionColumns + " FROM inventory_transactions WHERE inventory_item_id = $1 ORDER BY created_at DESC, id"
	args := []interface{}{inventoryItemID, offset}
	query += " OFFSET $2"
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	entries := []models.InventoryTransaction{}
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, wrap("get transactions", err)
	}
	return entries, nil
}
