package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/audit"
	"github.com/manubal/storefront/internal/auth"
	"github.com/manubal/storefront/internal/domain/apperr"
)

const msgInvalidBody = "Invalid request body"

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// failWith maps a service error onto the response. Client-safe categories
// carry their own message; anything else is logged and answered with
// generic.
func failWith(c *gin.Context, err error, generic string) {
	var (
		validation *apperr.ValidationError
		conflict   *apperr.ConflictError
		notFound   *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		fail(c, http.StatusBadRequest, validation.Message)
	case errors.As(err, &conflict):
		fail(c, http.StatusBadRequest, conflict.Message)
	case errors.As(err, &notFound):
		fail(c, http.StatusNotFound, notFound.Error())
	default:
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, generic)
	}
}

// pathID parses the :id parameter as a positive integer.
func pathID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

// record writes an audit entry for a completed admin mutation. Failures are
// logged and otherwise ignored.
func (h *Handler) record(c *gin.Context, action, targetType string, targetID int64, detail string) {
	if h.audit == nil {
		return
	}
	ctx := c.Request.Context()
	err := h.audit.Record(ctx, audit.Entry{
		Actor:      auth.Subject(c),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		zctx.From(ctx).Warn("Audit record failed",
			zap.String("action", action),
			zap.Int64("target_id", targetID),
			zap.Error(err),
		)
	}
}
