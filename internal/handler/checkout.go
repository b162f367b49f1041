package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manubal/storefront/internal/domain/checkout"
)

// PlaceOrder handles POST /api/checkout.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.checkout.Place(c.Request.Context(), req)
	if err != nil {
		failWith(c, err, "Failed to process order. Please try again.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     res.OrderID,
		"customerId":  res.CustomerID,
		"emailSent":   res.EmailSent,
		"redirectUrl": res.RedirectURL,
	})
}

// CheckoutInfo handles GET /api/checkout.
func (h *Handler) CheckoutInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Checkout API endpoint"})
}
