package api

import (
	"net/http"

	"restaurant-service/internal/models"
	"restaurant-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type restockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
}

type stockChangeResponse struct {
	Item        models.InventoryItem         `json:"item"`
	Transaction *models.InventoryTransaction `json:"transaction"`
}

func (h *Handler) createInventoryItem(c *gin.Context) {
	var req service.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.inventory.CreateItem(c.Request.Context(), &req, performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) listInventory(c *gin.Context) {
	items, err := h.inventory.ListItems(c.Request.Context(), models.StockStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) lowStock(c *gin.Context) {
	items, err := h.inventory.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) getInventoryItem(c *gin.Context) {
	item, err := h.inventory.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// stockLevel serves the cached stock level, falling back to the store
func (h *Handler) stockLevel(c *gin.Context) {
	level, err := h.inventory.StockLevel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}

func (h *Handler) inventoryHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	txs, err := h.inventory.History(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

func (h *Handler) restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.inventory.Restock(c.Request.Context(), c.Param("id"), req.Quantity, req.Reason, performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockChangeResponse{Item: res.Current, Transaction: res.Transaction})
}

// adjustStock applies a manual correction, used to reconcile failed deductions
func (h *Handler) adjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.inventory.Adjust(c.Request.Context(), c.Param("id"), &req, performedBy(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stockChangeResponse{Item: res.Current, Transaction: res.Transaction})
}
