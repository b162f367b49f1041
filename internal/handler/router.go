package handler

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/manubal/storefront/pkg/health"
	"github.com/manubal/storefront/pkg/httpmiddleware"
)

// RouterConfig holds the cross-cutting pieces the router attaches to routes.
type RouterConfig struct {
	Health *health.Checker
	// AllowedOrigins enables CORS for the listed origins; "*" allows any.
	// Empty disables CORS handling.
	AllowedOrigins []string
	// CheckoutGuard runs before POST /api/checkout, typically a rate limit.
	CheckoutGuard gin.HandlerFunc
	// Admin runs before every admin route, typically authentication.
	Admin []gin.HandlerFunc
	// TrustProxy lets gin take the client address recorded in the audit log
	// from X-Forwarded-For.
	TrustProxy bool
}

// NewRouter builds the gin engine serving the whole API.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if !cfg.TrustProxy {
		_ = r.SetTrustedProxies(nil)
	}
	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "Not found") })
	r.NoMethod(func(c *gin.Context) { fail(c, http.StatusMethodNotAllowed, "Method not allowed") })

	r.Use(httpmiddleware.RouteLabel())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	}

	if cfg.Health != nil {
		r.GET("/livez", gin.WrapF(cfg.Health.LiveEndpoint))
		r.GET("/readyz", gin.WrapF(cfg.Health.ReadyEndpoint))
	}

	api := r.Group("/api")

	place := []gin.HandlerFunc{h.PlaceOrder}
	if cfg.CheckoutGuard != nil {
		place = append([]gin.HandlerFunc{cfg.CheckoutGuard}, place...)
	}
	api.POST("/checkout", place...)
	api.GET("/checkout", h.CheckoutInfo)

	admin := api.Group("", cfg.Admin...)

	admin.GET("/customers", h.ListCustomers)
	admin.GET("/customers/:id", h.GetCustomer)
	admin.POST("/customers/:id/update", h.UpdateCustomer)
	admin.PUT("/customers/:id/update", h.UpdateCustomer)
	admin.POST("/customers/:id/delete", h.DeleteCustomer)
	admin.DELETE("/customers/:id/delete", h.DeleteCustomer)

	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/monthly-stats", h.MonthlyStats)
	admin.GET("/orders/:id", h.GetOrder)
	admin.POST("/orders/:id/status", h.UpdateOrderStatus)
	admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
	admin.POST("/orders/:id/delete", h.DeleteOrder)
	admin.DELETE("/orders/:id/delete", h.DeleteOrder)

	admin.GET("/audit-log", h.ListAuditLog)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{httpmiddleware.RequestIDHeader, "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
