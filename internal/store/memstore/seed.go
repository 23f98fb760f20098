package memstore

import (
	"context"
	"fmt"

	"restaurant-service/internal/models"
)

// Seed loads the sample kitchen used when the service runs without a database
func Seed(ctx context.Context, s *Store) error {
	inventory := []models.InventoryItem{
		{ID: "inv-flour", Name: "Flour", Category: "dry_goods", Unit: "kg", Quantity: Quantity("25"), UnitCost: Quantity("1.20"), Threshold: Quantity("5"), ReorderQuantity: Quantity("25")},
		{ID: "inv-mozzarella", Name: "Mozzarella", Category: "dairy", Unit: "kg", Quantity: Quantity("8"), UnitCost: Quantity("9.50"), Threshold: Quantity("2"), ReorderQuantity: Quantity("10")},
		{ID: "inv-tomato-sauce", Name: "Tomato Sauce", Category: "condiments", Unit: "l", Quantity: Quantity("6"), UnitCost: Quantity("3.10"), Threshold: Quantity("1.5"), ReorderQuantity: Quantity("6")},
		{ID: "inv-basil", Name: "Basil", Category: "produce", Unit: "bunch", Quantity: Quantity("4"), UnitCost: Quantity("1.75"), Threshold: Quantity("2"), ReorderQuantity: Quantity("10")},
		{ID: "inv-espresso", Name: "Espresso Beans", Category: "beverages", Unit: "kg", Quantity: Quantity("3"), UnitCost: Quantity("18.00"), Threshold: Quantity("1"), ReorderQuantity: Quantity("5")},
		{ID: "inv-milk", Name: "Whole Milk", Category: "dairy", Unit: "l", Quantity: Quantity("12"), UnitCost: Quantity("1.10"), Threshold: Quantity("4"), ReorderQuantity: Quantity("12")},
	}
	for i := range inventory {
		if err := s.CreateInventoryItem(ctx, &inventory[i]); err != nil {
			return fmt.Errorf("failed to seed inventory: %w", err)
		}
	}

	menu := []models.MenuItem{
		{
			ID: "menu-margherita", Name: "Margherita Pizza", Price: Quantity("12.50"), Category: "pizza", Available: true,
			Ingredients: []models.Ingredient{
				{InventoryItemID: "inv-flour", QuantityPerUnit: Quantity("0.25"), Unit: "kg"},
				{InventoryItemID: "inv-mozzarella", QuantityPerUnit: Quantity("0.2"), Unit: "kg"},
				{InventoryItemID: "inv-tomato-sauce", QuantityPerUnit: Quantity("0.1"), Unit: "l"},
				{InventoryItemID: "inv-basil", QuantityPerUnit: Quantity("0.1"), Unit: "bunch"},
			},
		},
		{
			ID: "menu-latte", Name: "Caffe Latte", Price: Quantity("4.20"), Category: "drinks", Available: true,
			Ingredients: []models.Ingredient{
				{InventoryItemID: "inv-espresso", QuantityPerUnit: Quantity("0.018"), Unit: "kg"},
				{InventoryItemID: "inv-milk", QuantityPerUnit: Quantity("0.25"), Unit: "l"},
			},
		},
	}
	for i := range menu {
		if err := s.CreateMenuItem(ctx, &menu[i]); err != nil {
			return fmt.Errorf("failed to seed menu: %w", err)
		}
	}

	order := &models.Order{
		ID:            "order-sample",
		CustomerID:    "customer-walk-in",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Items: []models.OrderLineItem{
			{MenuItemID: "menu-margherita", Name: "Margherita Pizza", Price: Quantity("12.50"), Quantity: 2},
			{MenuItemID: "menu-latte", Name: "Caffe Latte", Price: Quantity("4.20"), Quantity: 1},
		},
		Subtotal:    Quantity("29.20"),
		Tax:         Quantity("2.34"),
		DeliveryFee: Quantity("0"),
		Total:       Quantity("31.54"),
	}
	if err := s.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to seed order: %w", err)
	}

	return nil
}
