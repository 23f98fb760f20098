package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"restaurant-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/mirror_stock.lua
var mirrorStockScript string

const lockRetryInterval = 25 * time.Millisecond

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	mirrorScript  *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w: %w", err, models.ErrStoreUnavailable)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		mirrorScript:  redis.NewScript(mirrorStockScript),
	}
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w: %w", err, models.ErrStoreUnavailable)
	}
	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(orderID string) string {
	return fmt.Sprintf("lock:order:%s", orderID)
}

func stockKey(inventoryItemID string) string {
	return fmt.Sprintf("stock:%s", inventoryItemID)
}

// LockOrder acquires the order's distributed lock, retrying until wait elapses.
// The lock holds an owner token so only the holder can release it.
func (c *Client) LockOrder(ctx context.Context, orderID string, ttl, wait time.Duration) (func(), error) {
	key := lockKey(orderID)
	token := uuid.New().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w: %w", key, err, models.ErrStoreUnavailable)
		}
		if ok {
			return func() { c.releaseLock(key, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("order %s: %w", orderID, models.ErrConfirmationInProgress)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (c *Client) releaseLock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// an expired lock is simply gone; nothing to report
	_ = c.releaseScript.Run(ctx, c.rdb, []string{key}, token).Err()
}

// MirrorStock writes the item's quantity and status if version is newer than the mirrored one
func (c *Client) MirrorStock(ctx context.Context, item *models.InventoryItem, version int64) error {
	_, err := c.mirrorScript.Run(ctx, c.rdb, []string{stockKey(item.ID)},
		version, item.Quantity.String(), string(item.Status)).Result()
	if err != nil {
		return fmt.Errorf("mirror stock script failed: %w", err)
	}
	return nil
}

// GetStockLevel reads the mirrored stock level. Returns nil, nil when the item is not mirrored.
func (c *Client) GetStockLevel(ctx context.Context, inventoryItemID string) (*models.StockLevel, error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(inventoryItemID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(result) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock level: %w", err)
	}

	return &models.StockLevel{
		InventoryItemID: inventoryItemID,
		Quantity:        result["quantity"],
		Status:          models.StockStatus(result["status"]),
		Source:          models.StockSourceMirror,
	}, nil
}

// StockVersion returns the mirrored version for an item, or -1 when absent
func (c *Client) StockVersion(ctx context.Context, inventoryItemID string) (int64, error) {
	v, err := c.rdb.HGet(ctx, stockKey(inventoryItemID), "version").Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}
