package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/manubal/storefront/internal/audit"
	"github.com/manubal/storefront/internal/auth"
	"github.com/manubal/storefront/internal/domain/checkout"
	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
	"github.com/manubal/storefront/internal/handler"
	"github.com/manubal/storefront/internal/notify"
	"github.com/manubal/storefront/internal/repository"
	"github.com/manubal/storefront/pkg/health"
	"github.com/manubal/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	gin.SetMode(gin.ReleaseMode)

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	store := repository.NewStore(pool)

	healthSvc := health.New()
	healthSvc.AddCheck(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddCheck(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Audit log through gorm on the same database.
	var auditLog handler.AuditLog
	if !cfg.Audit.Disabled {
		db, err := audit.Open(cfg.DatabaseURL, lg)
		if err != nil {
			return errors.Wrap(err, "open audit log")
		}
		auditStore := audit.New(db)
		defer func() { _ = auditStore.Close() }()
		if err := auditStore.Migrate(ctx); err != nil {
			return errors.Wrap(err, "migrate audit log")
		}
		healthSvc.AddCheck(health.Readiness, "audit", 5*time.Second, health.PingCheck(auditStore))
		auditLog = auditStore
	}

	mailer, err := newMailer(cfg, lg, m)
	if err != nil {
		return errors.Wrap(err, "create mailer")
	}

	pricing, err := cfg.Pricing()
	if err != nil {
		return err
	}
	checkoutSvc, err := checkout.NewService(store, mailer, checkout.Config{
		Pricing:     pricing,
		SuccessPath: cfg.Checkout.SuccessPath,
	}, lg.Named("checkout"), m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}
	customerSvc := customer.NewService(store.Customers(), lg.Named("customer"))
	orderSvc := order.NewService(store.Orders(), mailer, lg.Named("order"))

	admin, err := adminChain(cfg.Auth, lg)
	if err != nil {
		return errors.Wrap(err, "create auth middleware")
	}

	router := handler.NewRouter(
		handler.New(checkoutSvc, customerSvc, orderSvc, auditLog),
		handler.RouterConfig{
			Health:         healthSvc,
			AllowedOrigins: cfg.CORS.Origins,
			CheckoutGuard: httpmiddleware.Gin(httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:        cfg.Checkout.RateLimitMax,
				Window:     cfg.Checkout.RateLimitWindow,
				TrustProxy: cfg.RateLimit.TrustProxy,
			})),
			Admin:      admin,
			TrustProxy: cfg.RateLimit.TrustProxy,
		},
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:        cfg.RateLimit.Max,
				Window:     cfg.RateLimit.Window,
				TrustProxy: cfg.RateLimit.TrustProxy,
				Skip:       isProbe,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		defer healthSvc.Stop()

		// Skip the drain delay when the server died on its own.
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

func newMailer(cfg *Config, lg *zap.Logger, m *app.Telemetry) (*notify.Mailer, error) {
	var sender notify.Sender
	if cfg.Email.Disabled {
		lg.Warn("Email sending is disabled")
	} else {
		sender = resend.NewClient(cfg.Email.APIKey).Emails
	}
	return notify.NewMailer(sender, notify.Config{
		From:         cfg.Email.From,
		ShippingFrom: cfg.Email.ShippingFrom,
		SupportEmail: cfg.Email.SupportEmail,
		BaseURL:      cfg.PublicBaseURL,
		SuccessPath:  cfg.Checkout.SuccessPath,
		Locale:       cfg.Email.Locale,
		Currency:     cfg.Email.Currency,
		Timeout:      cfg.Email.Timeout,
	}, lg.Named("notify"), m.MeterProvider())
}

// adminChain returns the middlewares guarding the admin routes.
func adminChain(cfg AuthConfig, lg *zap.Logger) ([]gin.HandlerFunc, error) {
	if cfg.Disabled {
		lg.Warn("Admin authentication is disabled")
		return []gin.HandlerFunc{auth.Trusted("local-admin")}, nil
	}
	mw, err := auth.Middleware(auth.Config{
		IssuerURL: cfg.IssuerURL,
		Audience:  cfg.Audience,
		Scope:     cfg.Scope,
	})
	if err != nil {
		return nil, err
	}
	chain := []gin.HandlerFunc{mw}
	if cfg.Scope != "" {
		chain = append(chain, auth.RequireScope(cfg.Scope))
	}
	return chain, nil
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}
