package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"restaurant-service/internal/models"
	"restaurant-service/internal/service"
	"restaurant-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the application services the handlers call
type Services struct {
	Orders        *service.OrderService
	Inventory     *service.InventoryService
	Menu          *service.MenuService
	Notifications *service.NotificationService
}

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders        *service.OrderService
	inventory     *service.InventoryService
	menu          *service.MenuService
	notifications *service.NotificationService
	authEnabled   bool
	checks        []ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, authEnabled bool, checks ...ReadinessCheck) *Handler {
	return &Handler{
		orders:        svc.Orders,
		inventory:     svc.Inventory,
		menu:          svc.Menu,
		notifications: svc.Notifications,
		authEnabled:   authEnabled,
		checks:        checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(identity())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/orders/confirm", h.require(PermOrdersConfirm), h.confirmOrder)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.require(PermOrdersWrite), h.createOrder)
		v1.GET("/orders", h.require(PermRead), h.listOrders)
		v1.GET("/orders/:id", h.require(PermRead), h.getOrder)
		v1.PATCH("/orders/:id/status", h.require(PermOrdersWrite), h.updateOrderStatus)
		v1.POST("/orders/:id/cancel", h.require(PermOrdersWrite), h.cancelOrder)
		v1.POST("/orders/:id/confirm", h.require(PermOrdersConfirm), h.confirmOrderByID)

		v1.POST("/inventory", h.require(PermInventoryWrite), h.createInventoryItem)
		v1.GET("/inventory", h.require(PermRead), h.listInventory)
		v1.GET("/inventory/low-stock", h.require(PermRead), h.lowStock)
		v1.GET("/inventory/:id", h.require(PermRead), h.getInventoryItem)
		v1.GET("/inventory/:id/level", h.require(PermRead), h.stockLevel)
		v1.GET("/inventory/:id/transactions", h.require(PermRead), h.inventoryHistory)
		v1.POST("/inventory/:id/restock", h.require(PermInventoryWrite), h.restock)
		v1.POST("/inventory/:id/adjust", h.require(PermInventoryWrite), h.adjustStock)

		v1.POST("/menu", h.require(PermMenuWrite), h.createMenuItem)
		v1.GET("/menu", h.require(PermRead), h.listMenu)
		v1.GET("/menu/:id", h.require(PermRead), h.getMenuItem)

		v1.GET("/notifications", h.require(PermRead), h.listNotifications)
		v1.PATCH("/notifications/:id/read", h.require(PermNotificationsWrite), h.markNotificationRead)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports not ready when any dependency check fails
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			failing[check.Name] = err.Error()
		}
	}

	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"details": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors to status codes
func respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrInvalidInput):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrConfirmationInProgress):
		status, message = http.StatusConflict, "Confirmation already in progress"
	case errors.Is(err, models.ErrInsufficientStock):
		status, message = http.StatusConflict, "Insufficient stock"
	case errors.Is(err, models.ErrInvalidState):
		status, message = http.StatusConflict, "Invalid state"
	case errors.Is(err, models.ErrStoreUnavailable):
		status, message = http.StatusServiceUnavailable, "Service unavailable"
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// queryInt reads a non-negative integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameter",
			"details": name + " must be a non-negative integer",
		})
		return 0, false
	}
	return v, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
