package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manubal/storefront/internal/audit"
	"github.com/manubal/storefront/internal/domain/order"
)

const msgInvalidOrderID = "Invalid order ID"

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	list, err := h.orders.List(c.Request.Context())
	if err != nil {
		failWith(c, err, "Failed to fetch orders")
		return
	}

	out := make([]orderSummaryJSON, len(list))
	for i, s := range list {
		out[i] = orderSummaryJSON{
			orderJSON:    newOrderJSON(s.Order),
			CustomerName: s.CustomerName,
			ItemCount:    s.ItemCount,
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": out})
}

// GetOrder handles GET /api/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, msgInvalidOrderID)
	if !ok {
		return
	}
	d, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, err, "Failed to fetch order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": newOrderDetailJSON(d)})
}

type statusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
}

// UpdateOrderStatus handles POST|PUT /api/orders/:id/status.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, msgInvalidOrderID)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sent, err := h.orders.UpdateStatus(c.Request.Context(), id, order.StatusChange{
		Status:         order.Status(req.Status),
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
	})
	if err != nil {
		failWith(c, err, "Failed to update order status")
		return
	}

	h.record(c, audit.ActionOrderStatusUpdate, "order", id, "status="+req.Status)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Order status updated successfully",
		"emailSent": sent,
	})
}

// DeleteOrder handles POST|DELETE /api/orders/:id/delete.
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, msgInvalidOrderID)
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err, "Failed to delete order. Please try again.")
		return
	}

	h.record(c, audit.ActionOrderDelete, "order", id, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted successfully"})
}

// MonthlyStats handles GET /api/orders/monthly-stats.
func (h *Handler) MonthlyStats(c *gin.Context) {
	stats, err := h.orders.MonthlyStats(c.Request.Context())
	if err != nil {
		failWith(c, err, "Failed to fetch monthly stats")
		return
	}

	out := make([]monthlyStatJSON, len(stats))
	for i, s := range stats {
		out[i] = monthlyStatJSON{
			Month:        s.Month,
			OrderCount:   s.OrderCount,
			TotalRevenue: s.Revenue.InexactFloat64(),
		}
	}
	c.JSON(http.StatusOK, out)
}
