package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manubal/storefront/internal/audit"
)

// ListAuditLog handles GET /api/audit-log?limit=N.
func (h *Handler) ListAuditLog(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	entries := []audit.Entry{}
	if h.audit != nil {
		var err error
		entries, err = h.audit.List(c.Request.Context(), limit)
		if err != nil {
			failWith(c, err, "Failed to fetch audit log")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
}
