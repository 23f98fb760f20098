package store

import (
	"context"
	"fmt"

	"restaurant-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const menuColumns = "id, name, price, category, available, created_at, updated_at"

type ingredientRow struct {
	MenuItemID string `db:"menu_item_id"`
	models.Ingredient
}

// CreateMenuItem inserts a menu item and its ordered ingredient list
func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO menu_items (id, name, price, category, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Price, item.Category, item.Available,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return wrap("create menu item", err)
	}

	for i, ing := range item.Ingredients {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO menu_item_ingredients (menu_item_id, position, inventory_item_id, quantity_per_unit, unit)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, i, ing.InventoryItemID, ing.QuantityPerUnit, ing.Unit)
		if err != nil {
			return wrap("create menu item ingredient", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit menu item", err)
	}
	return nil
}

// GetMenuItem retrieves a menu item with its ingredients
func (s *Store) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.GetContext(ctx, &item, "SELECT "+menuColumns+" FROM menu_items WHERE id = $1", id)
	if notFound(err) {
		return nil, fmt.Errorf("menu item %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get menu item", err)
	}

	item.Ingredients = []models.Ingredient{}
	err = s.db.SelectContext(ctx, &item.Ingredients, `
		SELECT inventory_item_id, quantity_per_unit, unit
		FROM menu_item_ingredients WHERE menu_item_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, wrap("get menu item ingredients", err)
	}
	return &item, nil
}

// ListMenuItems returns all menu items ordered by category then name
func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	err := s.db.SelectContext(ctx, &items, "SELECT "+menuColumns+" FROM menu_items ORDER BY category, name")
	if err != nil {
		return nil, wrap("list menu items", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
		items[i].Ingredients = []models.Ingredient{}
	}

	query, args, err := sqlx.In(`
		SELECT menu_item_id, inventory_item_id, quantity_per_unit, unit
		FROM menu_item_ingredients WHERE menu_item_id IN (?) ORDER BY menu_item_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build ingredient query: %w", err)
	}
	query = s.db.Rebind(query)

	var rows []ingredientRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrap("list menu item ingredients", err)
	}

	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}
	for _, row := range rows {
		if i, ok := index[row.MenuItemID]; ok {
			items[i].Ingredients = append(items[i].Ingredients, row.Ingredient)
		}
	}
	return items, nil
}
