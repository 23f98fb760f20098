package store

import (
	"context"
	"database/sql"
	"fmt"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
)

const notificationColumns = `id, type, kind, title, message, is_read, inventory_item_id, transaction_id, created_at`

// CreateNotification stores a notification
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (id, type, kind, title, message, is_read, inventory_item_id, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		n.ID, n.Type, n.Kind, n.Title, n.Message, n.IsRead, n.InventoryItemID, n.TransactionID,
	).Scan(&n.CreatedAt)
	if err != nil {
		return "", wrap("create notification", err)
	}
	return n.ID, nil
}

// ListNotifications returns notifications newest first
func (s *Store) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications"
	if unreadOnly {
		query += " WHERE NOT is_read"
	}
	query += " ORDER BY created_at DESC"

	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	out := []models.Notification{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("list notifications", err)
	}
	return out, nil
}

// GetNotificationByTransaction returns the alert raised by a ledger entry, or nil when there is none
func (s *Store) GetNotificationByTransaction(ctx context.Context, transactionID string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.GetContext(ctx, &n, "SELECT "+notificationColumns+" FROM notifications WHERE transaction_id = $1", transactionID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get notification by transaction", err)
	}
	return &n, nil
}

// MarkNotificationRead flags a notification as read
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = TRUE WHERE id = $1", id)
	if err != nil {
		return wrap("mark notification read", err)
	}
	return requireRow(res, "notification", id)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}
