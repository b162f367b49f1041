// Package httpmiddleware contains net/http middleware shared by the
// storefront servers: panic recovery, request ids, request-scoped logging,
// OpenTelemetry instrumentation and rate limiting.
package httpmiddleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware wraps an http.Handler.
type Middleware func(next http.Handler) http.Handler

// Wrap applies middlewares to h so that the first middleware is the
// outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Gin adapts a Middleware to a gin handler so it can guard individual
// routes. The gin chain continues only if the middleware calls its next
// handler; otherwise the request is aborted with whatever it wrote.
func Gin(m Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		m(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// writeError writes the storefront error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
