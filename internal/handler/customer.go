package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manubal/storefront/internal/audit"
	"github.com/manubal/storefront/internal/domain/customer"
)

const msgInvalidCustomerID = "Invalid customer ID"

// ListCustomers handles GET /api/customers.
func (h *Handler) ListCustomers(c *gin.Context) {
	list, err := h.customers.List(c.Request.Context())
	if err != nil {
		failWith(c, err, "Failed to fetch customers")
		return
	}

	out := make([]customerSummaryJSON, len(list))
	for i, s := range list {
		out[i] = customerSummaryJSON{
			customerJSON: newCustomerJSON(s.Customer),
			OrderCount:   s.OrderCount,
			TotalSpent:   s.TotalSpent.InexactFloat64(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customers": out})
}

// GetCustomer handles GET /api/customers/:id.
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, msgInvalidCustomerID)
	if !ok {
		return
	}
	d, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, err, "Failed to fetch customer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customer": newCustomerDetailJSON(d)})
}

type customerUpdateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phoneNumber"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	ZipCode   *string `json:"zipCode"`
}

// UpdateCustomer handles POST|PUT /api/customers/:id/update.
func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, msgInvalidCustomerID)
	if !ok {
		return
	}
	var req customerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	err := h.customers.Update(c.Request.Context(), id, customer.Patch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
	})
	if err != nil {
		failWith(c, err, "Failed to update customer. Please try again.")
		return
	}

	h.record(c, audit.ActionCustomerUpdate, "customer", id, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Customer updated successfully"})
}

// DeleteCustomer handles POST|DELETE /api/customers/:id/delete.
func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c, msgInvalidCustomerID)
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), id); err != nil {
		failWith(c, err, "Failed to delete customer. Please try again.")
		return
	}

	h.record(c, audit.ActionCustomerDelete, "customer", id, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Customer deleted successfully"})
}
