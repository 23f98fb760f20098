package service

import (
	"context"
	"fmt"
	"strings"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	initialStockReason = "Initial stock"
	restockReason      = "Restock"
)

// QuantityPlaces is the scale stock quantities are stored with
const QuantityPlaces = 4

// checkPlaces rejects quantities the store would silently round
func checkPlaces(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(QuantityPlaces)) {
		return fmt.Errorf("%s %s has more than %d decimal places: %w", field, d.String(), QuantityPlaces, models.ErrInvalidInput)
	}
	return nil
}

// InventoryService handles inventory item management outside the confirmation workflow
type InventoryService struct {
	inventory InventoryStore
	ledger    TransactionLedger
	notifier  StockNotifier
	mirror    StockMirror
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service. mirror may be nil.
func NewInventoryService(stores Stores, notifier StockNotifier, mirror StockMirror) *InventoryService {
	return &InventoryService{
		inventory: stores.Inventory,
		ledger:    stores.Ledger,
		notifier:  notifier,
		mirror:    mirror,
		logger:    util.GetLogger(),
	}
}

// CreateInventoryItemRequest represents a request to add an inventory item
type CreateInventoryItemRequest struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"name" binding:"required"`
	Category        string          `json:"category"`
	Unit            string          `json:"unit" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	Threshold       decimal.Decimal `json:"threshold"`
	ReorderQuantity decimal.Decimal `json:"reorderQuantity"`
	SupplierID      *string         `json:"supplierId,omitempty"`
}

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	Type     models.TransactionType `json:"type" binding:"required"`
	Quantity decimal.Decimal        `json:"quantity"`
	Reason   string                 `json:"reason" binding:"required"`
}

// CreateItem adds an inventory item. A positive starting quantity is recorded as an "in" transaction.
func (is *InventoryService) CreateItem(ctx context.Context, req *CreateInventoryItemRequest, performedBy string) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.CreateItem")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", models.ErrInvalidInput)
	}
	if req.Quantity.IsNegative() || req.Threshold.IsNegative() || req.UnitCost.IsNegative() || req.ReorderQuantity.IsNegative() {
		return nil, fmt.Errorf("quantities and costs must not be negative: %w", models.ErrInvalidInput)
	}
	for field, d := range map[string]decimal.Decimal{
		"quantity":         req.Quantity,
		"threshold":        req.Threshold,
		"reorder quantity": req.ReorderQuantity,
	} {
		if err := checkPlaces(field, d); err != nil {
			return nil, err
		}
	}

	item := &models.InventoryItem{
		ID:              req.ID,
		Name:            req.Name,
		Category:        req.Category,
		Unit:            req.Unit,
		Quantity:        decimal.Zero,
		UnitCost:        req.UnitCost,
		Threshold:       req.Threshold,
		ReorderQuantity: req.ReorderQuantity,
		SupplierID:      req.SupplierID,
	}
	if err := is.inventory.CreateInventoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	if req.Quantity.IsPositive() {
		res, err := is.inventory.IncrementInventory(ctx, models.StockChange{
			InventoryItemID: item.ID,
			Amount:          req.Quantity,
			Reason:          initialStockReason,
			PerformedBy:     actor(performedBy),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record initial stock: %w", err)
		}
		item = &res.Current
	}

	mirrorItem(ctx, is.mirror, item)
	is.logger.Info("Inventory item created",
		zap.String("inventory_item_id", item.ID),
		zap.String("quantity", item.Quantity.String()))
	return item, nil
}

// GetItem retrieves an inventory item by ID
func (is *InventoryService) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	return is.inventory.GetInventoryItem(ctx, id)
}

// ListItems returns inventory items, optionally filtered by stock status
func (is *InventoryService) ListItems(ctx context.Context, status models.StockStatus) ([]models.InventoryItem, error) {
	items, err := is.inventory.ListInventoryItems(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return items, nil
	}

	filtered := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if item.Status == status {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// LowStock returns every item at or below its reorder threshold
func (is *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := is.inventory.ListInventoryItems(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]models.InventoryItem, 0)
	for _, item := range items {
		if item.Status != models.StockStatusInStock {
			low = append(low, item)
		}
	}
	return low, nil
}

// Restock adds stock and records an "in" transaction
func (is *InventoryService) Restock(ctx context.Context, id string, amount decimal.Decimal, reason, performedBy string) (*models.StockChangeResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Restock", util.AttrInventoryItemID.String(id))
	defer span.End()

	if !amount.IsPositive() {
		return nil, fmt.Errorf("restock quantity must be positive: %w", models.ErrInvalidInput)
	}
	if err := checkPlaces("restock quantity", amount); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = restockReason
	}

	res, err := is.inventory.IncrementInventory(ctx, models.StockChange{
		InventoryItemID: id,
		Amount:          amount,
		Reason:          reason,
		PerformedBy:     actor(performedBy),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restock %s: %w", id, err)
	}

	util.InventoryRestocksTotal.Inc()
	mirrorItem(ctx, is.mirror, &res.Current)
	is.logger.Info("Inventory restocked",
		zap.String("inventory_item_id", id),
		zap.String("amount", amount.String()),
		zap.String("new_quantity", res.Current.Quantity.String()))
	return res, nil
}

// Adjust applies a manual correction. Removing more than is on hand fails with ErrInsufficientStock.
func (is *InventoryService) Adjust(ctx context.Context, id string, req *AdjustStockRequest, performedBy string) (*models.StockChangeResult, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Adjust", util.AttrInventoryItemID.String(id))
	defer span.End()

	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("adjustment quantity must be positive: %w", models.ErrInvalidInput)
	}
	if err := checkPlaces("adjustment quantity", req.Quantity); err != nil {
		return nil, err
	}

	change := models.StockChange{
		InventoryItemID: id,
		Amount:          req.Quantity,
		Reason:          req.Reason,
		PerformedBy:     actor(performedBy),
	}

	var res *models.StockChangeResult
	var err error
	switch req.Type {
	case models.TransactionIn:
		res, err = is.inventory.IncrementInventory(ctx, change)
	case models.TransactionOut:
		res, err = is.inventory.DecrementInventory(ctx, change)
	default:
		return nil, fmt.Errorf("adjustment type must be in or out: %w", models.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust %s: %w", id, err)
	}

	mirrorItem(ctx, is.mirror, &res.Current)
	if _, err := notifyTransition(ctx, is.notifier, res); err != nil {
		is.logger.Warn("Stock changed without its alert", zap.String("inventory_item_id", id), zap.Error(err))
	}
	is.logger.Info("Inventory adjusted",
		zap.String("inventory_item_id", id),
		zap.String("type", string(req.Type)),
		zap.String("amount", req.Quantity.String()),
		zap.String("reason", req.Reason))
	return res, nil
}

// History returns an item's ledger entries, newest first
func (is *InventoryService) History(ctx context.Context, id string, limit, offset int) ([]models.InventoryTransaction, error) {
	if _, err := is.inventory.GetInventoryItem(ctx, id); err != nil {
		return nil, err
	}
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("limit and offset must not be negative: %w", models.ErrInvalidInput)
	}
	return is.ledger.GetTransactionsForItem(ctx, id, limit, offset)
}

// StockLevel reads the mirrored stock level, falling back to the store on a miss or mirror failure
func (is *InventoryService) StockLevel(ctx context.Context, id string) (*models.StockLevel, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.StockLevel", util.AttrInventoryItemID.String(id))
	defer span.End()

	if is.mirror != nil {
		level, err := is.mirror.GetStockLevel(ctx, id)
		if err != nil {
			is.logger.Warn("Stock mirror read failed, falling back to store",
				zap.String("inventory_item_id", id),
				zap.Error(err))
		} else if level != nil {
			return level, nil
		}
	}

	item, err := is.inventory.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	mirrorItem(ctx, is.mirror, item)

	return &models.StockLevel{
		InventoryItemID: item.ID,
		Quantity:        item.Quantity.String(),
		Status:          item.Status,
		Source:          models.StockSourceStore,
	}, nil
}

// SyncMirror copies every inventory item's stock level into the mirror
func (is *InventoryService) SyncMirror(ctx context.Context) error {
	if is.mirror == nil {
		return nil
	}

	is.logger.Info("Starting stock mirror sync")

	items, err := is.inventory.ListInventoryItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}

	for i := range items {
		mirrorItem(ctx, is.mirror, &items[i])
	}

	is.logger.Info("Stock mirror sync completed", zap.Int("count", len(items)))
	return nil
}

// mirrorItem writes the item's level to the mirror under the item's version. Failures are logged only.
func mirrorItem(ctx context.Context, mirror StockMirror, item *models.InventoryItem) {
	if mirror == nil {
		return
	}
	if err := mirror.MirrorStock(ctx, item, item.Version); err != nil {
		util.GetLogger().Warn("Failed to mirror stock level",
			zap.String("inventory_item_id", item.ID),
			zap.Error(err))
	}
}

func actor(performedBy string) string {
	if performedBy == "" {
		return systemActor
	}
	return performedBy
}
