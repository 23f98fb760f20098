package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm Permission
		want bool
	}{
		{"admin", PermInventoryWrite, true},
		{"manager", PermOrdersConfirm, true},
		{"staff", PermOrdersConfirm, true},
		{"staff", PermInventoryWrite, false},
		{"viewer", PermRead, true},
		{"viewer", PermOrdersConfirm, false},
		{"staff", PermNotificationsWrite, true},
		{"viewer", PermNotificationsWrite, false},
		{"unknown", PermRead, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasPermission(tt.role, tt.perm), "%s %s", tt.role, tt.perm)
	}
}

func TestAuthEnforcedOnConfirm(t *testing.T) {
	router := newTestRouter(t, true)
	body := gin.H{"orderId": "order-sample"}

	w, _ := do(t, router, http.MethodPost, "/orders/confirm", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, router, http.MethodPost, "/orders/confirm", body, map[string]string{HeaderUserRole: "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, router, http.MethodPost, "/orders/confirm", body, map[string]string{HeaderUserRole: "staff", HeaderUserID: "u-42"})
	assert.Equal(t, http.StatusOK, w.Code)

	_, history := do(t, router, http.MethodGet, "/api/v1/inventory/inv-flour/transactions", nil, map[string]string{HeaderUserRole: "viewer"})
	tx := history["transactions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "u-42", tx["performedBy"])
	assert.Equal(t, "Used in order #1001", tx["reason"])
}

func TestAuthStatusPatchToConfirmedNeedsConfirmPermission(t *testing.T) {
	router := newTestRouter(t, true)

	w, _ := do(t, router, http.MethodPatch, "/api/v1/orders/order-sample/status", gin.H{"status": "confirmed"}, map[string]string{HeaderUserRole: "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/inventory/inv-milk/restock", gin.H{"quantity": "1"}, map[string]string{HeaderUserRole: "staff"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/inventory/inv-milk/restock", gin.H{"quantity": "1"}, map[string]string{HeaderUserRole: "manager"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMarkNotificationReadNeedsWritePermission(t *testing.T) {
	router := newTestRouter(t, true)
	manager := map[string]string{HeaderUserRole: "manager"}

	w, _ := do(t, router, http.MethodPost, "/api/v1/inventory/inv-basil/adjust", gin.H{"type": "out", "quantity": "2.5", "reason": "wilted"}, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := do(t, router, http.MethodGet, "/api/v1/notifications?unread=true", nil, map[string]string{HeaderUserRole: "viewer"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), body["count"])
	path := "/api/v1/notifications/" + body["notifications"].([]interface{})[0].(map[string]interface{})["id"].(string) + "/read"

	w, _ = do(t, router, http.MethodPatch, path, nil, map[string]string{HeaderUserRole: "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, body = do(t, router, http.MethodGet, "/api/v1/notifications?unread=true", nil, map[string]string{HeaderUserRole: "viewer"})
	assert.Equal(t, float64(1), body["count"])

	w, _ = do(t, router, http.MethodPatch, path, nil, map[string]string{HeaderUserRole: "staff"})
	assert.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, router, http.MethodGet, "/api/v1/notifications?unread=true", nil, map[string]string{HeaderUserRole: "viewer"})
	assert.Equal(t, float64(0), body["count"])
}

func TestAuthDisabledActsAsSystem(t *testing.T) {
	router := newTestRouter(t, false)

	w, _ := do(t, router, http.MethodPost, "/orders/confirm", gin.H{"orderId": "order-sample"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, history := do(t, router, http.MethodGet, "/api/v1/inventory/inv-flour/transactions", nil, nil)
	tx := history["transactions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "system", tx["performedBy"])
}
