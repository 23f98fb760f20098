package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"restaurant-service/internal/models"
	"restaurant-service/internal/store/memstore"
	"restaurant-service/internal/util"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var q = memstore.Quantity

func init() {
	util.SetLogger(zap.NewNop())
}

type recordingEvents struct {
	mu               sync.Mutex
	created          []*models.OrderCreatedEvent
	confirmRequested []*models.OrderConfirmRequestedEvent
	confirmed        []*models.OrderConfirmedEvent
	statusChanged    []*models.OrderStatusChangedEvent
	alerts           []*models.StockAlertEvent
}

func (r *recordingEvents) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, e)
	return nil
}

func (r *recordingEvents) PublishOrderConfirmRequested(ctx context.Context, e *models.OrderConfirmRequestedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmRequested = append(r.confirmRequested, e)
	return nil
}

func (r *recordingEvents) PublishOrderConfirmed(ctx context.Context, e *models.OrderConfirmedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, e)
	return nil
}

func (r *recordingEvents) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusChanged = append(r.statusChanged, e)
	return nil
}

func (r *recordingEvents) PublishStockAlert(ctx context.Context, e *models.StockAlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, e)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (r *recordingPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

type fixture struct {
	store        *memstore.Store
	stores       Stores
	events       *recordingEvents
	fanout       *recordingPublisher
	notifier     *NotificationService
	confirmation *ConfirmationService
}

func storesFor(s *memstore.Store) Stores {
	return Stores{
		Orders:        s,
		Menu:          s,
		Inventory:     s,
		Ledger:        s,
		Notifications: s,
		Events:        s,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	f := &fixture{
		store:  s,
		stores: storesFor(s),
		events: &recordingEvents{},
		fanout: &recordingPublisher{},
	}
	f.notifier = NewNotificationService(s, f.fanout, f.events)
	f.confirmation = NewConfirmationService(f.stores, f.notifier, NewLocalLocker(), nil, f.events, 5*time.Second, time.Second)
	return f
}

func (f *fixture) inventory(t *testing.T, id, qty, threshold string) {
	t.Helper()
	require.NoError(t, f.store.CreateInventoryItem(context.Background(), &models.InventoryItem{
		ID:              id,
		Name:            id,
		Unit:            "kg",
		Quantity:        q(qty),
		Threshold:       q(threshold),
		ReorderQuantity: q("10"),
	}))
}

func (f *fixture) menuItem(t *testing.T, id string, ingredients ...models.Ingredient) {
	t.Helper()
	require.NoError(t, f.store.CreateMenuItem(context.Background(), &models.MenuItem{
		ID:          id,
		Name:        id,
		Price:       q("10"),
		Available:   true,
		Ingredients: ingredients,
	}))
}

func (f *fixture) order(t *testing.T, id string, lines ...models.OrderLineItem) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:            id,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Items:         lines,
	}
	require.NoError(t, f.store.CreateOrder(context.Background(), o))
	return o
}

func (f *fixture) quantity(t *testing.T, id string) string {
	t.Helper()
	item, err := f.store.GetInventoryItem(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity.String()
}

func (f *fixture) transactions(t *testing.T, id string) []models.InventoryTransaction {
	t.Helper()
	txs, err := f.store.GetTransactionsForItem(context.Background(), id, 0, 0)
	require.NoError(t, err)
	return txs
}

func (f *fixture) notifications(t *testing.T) []models.Notification {
	t.Helper()
	ns, err := f.store.ListNotifications(context.Background(), false, 0)
	require.NoError(t, err)
	return ns
}

func ingredient(inventoryID, perUnit string) models.Ingredient {
	return models.Ingredient{InventoryItemID: inventoryID, QuantityPerUnit: q(perUnit), Unit: "kg"}
}

func line(menuID string, qty int) models.OrderLineItem {
	return models.OrderLineItem{MenuItemID: menuID, Name: menuID, Price: q("10"), Quantity: qty}
}
