package api

import (
	"net/http"

	"restaurant-service/internal/models"
	"restaurant-service/internal/service"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey deduplicates order creation
const HeaderIdempotencyKey = "Idempotency-Key"

type confirmRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Async   bool   `json:"async"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// confirmOrder confirms an order and deducts its ingredients from inventory
func (h *Handler) confirmOrder(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.runConfirmation(c, req.OrderID, req.Async)
}

// confirmOrderByID is the resource-style form of confirmOrder
func (h *Handler) confirmOrderByID(c *gin.Context) {
	h.runConfirmation(c, c.Param("id"), c.Query("async") == "true")
}

func (h *Handler) runConfirmation(c *gin.Context, orderID string, async bool) {
	if async {
		requestID, err := h.orders.RequestConfirmation(c.Request.Context(), orderID, performedBy(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"success":   true,
			"message":   "Order confirmation queued",
			"orderId":   orderID,
			"requestId": requestID,
		})
		return
	}

	res, err := h.orders.UpdateStatus(c.Request.Context(), orderID, models.OrderStatusConfirmed, performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, confirmResponse(res.Confirmation))
}

func confirmResponse(res *service.ConfirmResult) gin.H {
	message := "Order confirmed and inventory updated"
	switch {
	case res.AlreadyProcessed:
		message = "Order already confirmed; inventory was not changed"
	case res.HasWarnings():
		message = "Order confirmed; some ingredients could not be deducted"
	}

	body := gin.H{
		"success":          true,
		"message":          message,
		"orderId":          res.OrderID,
		"orderNumber":      res.OrderNumber,
		"status":           res.Status,
		"alreadyProcessed": res.AlreadyProcessed,
		"outcomes":         res.Outcomes,
	}
	if res.HasWarnings() {
		body["warnings"] = res.Warnings()
	}
	return body
}

// createOrder places a new pending order
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
		req.IdempotencyKey = key
	}

	order, created, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, order)
}

// getOrder retrieves an order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// listOrders lists orders, optionally filtered by status
func (h *Handler) listOrders(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	orders, err := h.orders.ListOrders(c.Request.Context(), models.OrderStatus(c.Query("status")), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// updateOrderStatus moves an order to a new status
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Status == models.OrderStatusConfirmed && !h.allowed(c, PermOrdersConfirm) {
		return
	}

	res, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// cancelOrder cancels an order
func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"), performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
