package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-service/internal/service"
	"restaurant-service/internal/store/memstore"
	"restaurant-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	util.SetLogger(zap.NewNop())
}

func newTestRouter(t *testing.T, authEnabled bool, checks ...ReadinessCheck) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memstore.New()
	require.NoError(t, memstore.Seed(context.Background(), s))

	stores := service.Stores{
		Orders:        s,
		Menu:          s,
		Inventory:     s,
		Ledger:        s,
		Notifications: s,
		Events:        s,
	}
	notifier := service.NewNotificationService(s, nil, nil)
	confirmation := service.NewConfirmationService(stores, notifier, service.NewLocalLocker(), nil, nil, 5*time.Second, time.Second)

	h := NewHandler(Services{
		Orders:        service.NewOrderService(stores, confirmation, nil, memstore.Quantity("0.08"), memstore.Quantity("3.50")),
		Inventory:     service.NewInventoryService(stores, notifier, nil),
		Menu:          service.NewMenuService(stores),
		Notifications: notifier,
	}, authEnabled, checks...)

	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, false)

	w, body := do(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, false, ReadinessCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w, body := do(t, router, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", body["status"])
}

func TestConfirmOrder(t *testing.T) {
	router := newTestRouter(t, false)

	w, body := do(t, router, http.MethodPost, "/orders/confirm", gin.H{"orderId": "order-sample"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["alreadyProcessed"])
	assert.Equal(t, "confirmed", body["status"])
	assert.Len(t, body["outcomes"], 6)
	assert.NotContains(t, body, "warnings")

	w, body = do(t, router, http.MethodGet, "/api/v1/inventory/inv-flour", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "24.5", body["quantity"])
}

func TestConfirmOrderTwiceIsNoop(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/orders/confirm", gin.H{"orderId": "order-sample"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, router, http.MethodPost, "/orders/confirm", gin.H{"orderId": "order-sample"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["alreadyProcessed"])
	assert.Empty(t, body["outcomes"])

	_, body = do(t, router, http.MethodGet, "/api/v1/inventory/inv-flour/transactions", nil, nil)
	assert.Equal(t, float64(1), body["count"])
}

func TestConfirmOrderErrors(t *testing.T) {
	router := newTestRouter(t, false)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"missing order id", gin.H{}, http.StatusBadRequest},
		{"unknown order", gin.H{"orderId": "nope"}, http.StatusNotFound},
		{"async without broker", gin.H{"orderId": "order-sample", "async": true}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, http.MethodPost, "/orders/confirm", tt.body, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestConfirmCancelledOrderConflicts(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/api/v1/orders/order-sample/cancel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/orders/order-sample/confirm", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	router := newTestRouter(t, false)
	req := gin.H{
		"customerId": "c1",
		"items":      []gin.H{{"menuItemId": "menu-latte", "quantity": 2}},
	}
	headers := map[string]string{HeaderIdempotencyKey: "abc"}

	w, first := do(t, router, http.MethodPost, "/api/v1/orders", req, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", first["status"])
	assert.Equal(t, "8.4", first["subtotal"])

	w, second := do(t, router, http.MethodPost, "/api/v1/orders", req, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], second["id"])
}

func TestCreateOrderValidation(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/api/v1/orders", gin.H{"customerId": "c1", "items": []gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/orders", gin.H{
		"customerId": "c1",
		"items":      []gin.H{{"menuItemId": "menu-unknown", "quantity": 1}},
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatusRejectsIllegalTransition(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPatch, "/api/v1/orders/order-sample/status", gin.H{"status": "delivered"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, router, http.MethodPatch, "/api/v1/orders/order-sample/status", gin.H{"status": "bogus"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatusToConfirmedDeducts(t *testing.T) {
	router := newTestRouter(t, false)

	w, body := do(t, router, http.MethodPatch, "/api/v1/orders/order-sample/status", gin.H{"status": "confirmed"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	order := body["order"].(map[string]interface{})
	assert.Equal(t, true, order["inventoryUpdated"])
	assert.NotNil(t, body["confirmation"])
}

func TestRestockAndAdjust(t *testing.T) {
	router := newTestRouter(t, false)

	w, body := do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/restock", gin.H{"quantity": "6"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := body["item"].(map[string]interface{})
	assert.Equal(t, "10", item["quantity"])

	w, _ = do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/restock", gin.H{"quantity": "-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/adjust", gin.H{"type": "out", "quantity": "100", "reason": "spoiled"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/adjust", gin.H{"type": "out", "quantity": "1", "reason": "spoiled"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStockLevelFallsBackToStore(t *testing.T) {
	router := newTestRouter(t, false)

	w, body := do(t, router, http.MethodGet, "/api/v1/inventory/inv-milk/level", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "store", body["source"])
	assert.Equal(t, "12", body["quantity"])
}

func TestInventoryHistoryRejectsBadPaging(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodGet, "/api/v1/inventory/inv-milk/transactions?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/inventory/nope/transactions", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLowStockAlertReachesNotifications(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/adjust", gin.H{"type": "out", "quantity": "2.5", "reason": "wilted"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := do(t, router, http.MethodGet, "/api/v1/notifications?unread=true", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), body["count"])

	n := body["notifications"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "low_stock", n["kind"])

	w, _ = do(t, router, http.MethodPatch, "/api/v1/notifications/"+n["id"].(string)+"/read", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, router, http.MethodGet, "/api/v1/notifications?unread=true", nil, nil)
	assert.Equal(t, float64(0), body["count"])

	_, body = do(t, router, http.MethodGet, "/api/v1/inventory/low-stock", nil, nil)
	assert.Equal(t, float64(1), body["count"])
}

func TestCreateMenuItemValidatesIngredients(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/api/v1/menu", gin.H{
		"name":        "Cappuccino",
		"price":       "3.9",
		"ingredients": []gin.H{{"inventoryItemId": "inv-unknown", "quantityPerUnit": "0.1"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := do(t, router, http.MethodPost, "/api/v1/menu", gin.H{
		"name":        "Cappuccino",
		"price":       "3.9",
		"ingredients": []gin.H{{"inventoryItemId": "inv-milk", "quantityPerUnit": "0.15"}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["available"])

	_, body = do(t, router, http.MethodGet, "/api/v1/menu", nil, nil)
	assert.Equal(t, float64(3), body["count"])
}
