package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MenuService manages menu items and their recipes
type MenuService struct {
	menu      MenuCatalog
	inventory InventoryStore
	logger    *zap.Logger
}

// NewMenuService creates a new menu service
func NewMenuService(stores Stores) *MenuService {
	return &MenuService{
		menu:      stores.Menu,
		inventory: stores.Inventory,
		logger:    util.GetLogger(),
	}
}

// CreateMenuItemRequest represents a request to add a menu item
type CreateMenuItemRequest struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name" binding:"required"`
	Price       decimal.Decimal     `json:"price"`
	Category    string              `json:"category"`
	Available   *bool               `json:"available,omitempty"`
	Ingredients []IngredientRequest `json:"ingredients"`
}

// IngredientRequest is one recipe line
type IngredientRequest struct {
	InventoryItemID string          `json:"inventoryItemId" binding:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
	Unit            string          `json:"unit,omitempty"`
}

// CreateMenuItem validates the recipe against inventory and stores the item
func (ms *MenuService) CreateMenuItem(ctx context.Context, req *CreateMenuItemRequest) (*models.MenuItem, error) {
	ctx, span := util.StartSpan(ctx, "MenuService.CreateMenuItem")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", models.ErrInvalidInput)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", models.ErrInvalidInput)
	}

	ingredients := make([]models.Ingredient, 0, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		if !ing.QuantityPerUnit.IsPositive() {
			return nil, fmt.Errorf("ingredient %d: quantity per unit must be positive: %w", i, models.ErrInvalidInput)
		}
		if err := checkPlaces(fmt.Sprintf("ingredient %d: quantity per unit", i), ing.QuantityPerUnit); err != nil {
			return nil, err
		}

		inv, err := ms.inventory.GetInventoryItem(ctx, ing.InventoryItemID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("ingredient %d: unknown inventory item %s: %w", i, ing.InventoryItemID, models.ErrInvalidInput)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get inventory item: %w", err)
		}

		unit := ing.Unit
		if unit == "" {
			unit = inv.Unit
		}
		ingredients = append(ingredients, models.Ingredient{
			InventoryItemID: ing.InventoryItemID,
			QuantityPerUnit: ing.QuantityPerUnit,
			Unit:            unit,
		})
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item := &models.MenuItem{
		ID:          req.ID,
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Available:   available,
		Ingredients: ingredients,
	}
	if err := ms.menu.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	ms.logger.Info("Menu item created",
		zap.String("menu_item_id", item.ID),
		zap.Int("ingredients", len(ingredients)))
	return item, nil
}

// GetMenuItem retrieves a menu item by ID
func (ms *MenuService) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	return ms.menu.GetMenuItem(ctx, id)
}

// ListMenuItems returns all menu items
func (ms *MenuService) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	return ms.menu.ListMenuItems(ctx)
}
