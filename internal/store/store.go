package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"restaurant-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Postgres error codes
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w: %w", err, models.ErrStoreUnavailable)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w: %w", err, models.ErrStoreUnavailable)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap("ping database", err)
	}
	return nil
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return wrap("apply schema", err)
	}
	return nil
}

// IsEventProcessed checks if an event was already consumed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	if err != nil {
		return false, wrap("check processed event", err)
	}
	return exists, nil
}

// MarkEventProcessed records a consumed event
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return wrap("mark event processed", err)
	}
	return nil
}

// wrap classifies a database error: constraint violations become caller errors,
// everything else is treated as a transient outage.
func wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("failed to %s: %w: %w", op, err, models.ErrInvalidState)
		case checkViolation:
			return fmt.Errorf("failed to %s: %w: %w", op, err, models.ErrInvalidInput)
		}
	}
	return fmt.Errorf("failed to %s: %w: %w", op, err, models.ErrStoreUnavailable)
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
