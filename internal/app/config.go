package app

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/manubal/storefront/internal/domain/checkout"
)

const (
	defaultAddr          = "0.0.0.0:8080"
	defaultPublicBaseURL = "http://localhost:4321"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	// Env names the deployment; it selects the .env.<env> file.
	Env           string `default:"development" usage:"Deployment environment"`
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// PublicBaseURL is where the storefront pages live; email links point there.
	PublicBaseURL string `usage:"Public storefront URL (BETTER_AUTH_URL or PUBLIC_BETTER_AUTH_URL)" flag:"public-base-url"`
	Checkout      CheckoutConfig
	Email         EmailConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
	Audit         AuditConfig
}

// CheckoutConfig controls order pricing and the public checkout endpoint.
type CheckoutConfig struct {
	ShippingFee     string        `default:"50" usage:"Flat shipping fee charged on non-empty carts"`
	TaxRate         string        `default:"0.05" usage:"Tax rate applied to the subtotal"`
	SuccessPath     string        `default:"/order-success" usage:"Page the client is redirected to after checkout"`
	RateLimitMax    int           `default:"10" usage:"Checkout attempts per client per window; 0 disables"`
	RateLimitWindow time.Duration `default:"1m" usage:"Checkout rate limit window"`
}

// EmailConfig controls transactional email through Resend.
type EmailConfig struct {
	APIKey       string        `usage:"Resend API key (STORE_EMAIL_API_KEY or RESEND_API_KEY)" flag:"email-api-key"`
	From         string        `default:"Manubal <orders@manubal.com>" usage:"Sender of order confirmations"`
	ShippingFrom string        `default:"Manubal <shipping@manubal.com>" usage:"Sender of shipment notices"`
	SupportEmail string        `default:"support@manubal.com" usage:"Reply-to address"`
	Locale       string        `default:"en-IN" usage:"Locale for money formatting"`
	Currency     string        `default:"₹" usage:"Currency symbol"`
	Timeout      time.Duration `default:"10s" usage:"Per-email send timeout"`
	Disabled     bool          `default:"false" usage:"Skip sending emails" flag:"email-disabled"`
}

// AuthConfig controls admin token validation.
type AuthConfig struct {
	IssuerURL string `usage:"OpenID issuer URL used to fetch JWKS" flag:"auth-issuer-url"`
	Audience  string `usage:"Expected token audience" flag:"auth-audience"`
	Scope     string `usage:"Scope required for admin routes; empty accepts any valid token" flag:"auth-scope"`
	Disabled  bool   `default:"false" usage:"Accept every admin request (local development only)" flag:"auth-disabled"`
}

// RateLimitConfig controls the global per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max        int           `default:"100" usage:"Max requests per window; 0 disables"`
	Window     time.Duration `default:"1m"  usage:"Rate limit window duration"`
	TrustProxy bool          `default:"false" usage:"Key clients by X-Forwarded-For" flag:"trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"http://localhost:4321" usage:"Allowed CORS origins; * allows any"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// AuditConfig controls the admin audit log.
type AuditConfig struct {
	Disabled bool `default:"false" usage:"Do not record admin actions" flag:"audit-disabled"`
}

// LoadConfig loads .env files, then configuration from environment
// variables, YAML config files and args, applies platform-specific
// defaults and validates the result.
func LoadConfig(args []string) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotenv reads .env.<STORE_ENV> and then .env. Variables already set in
// the environment win, and missing files are ignored.
func loadDotenv() error {
	var files []string
	if env := os.Getenv("STORE_ENV"); env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names to the STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Email.APIKey == "" {
		c.Email.APIKey = os.Getenv("RESEND_API_KEY")
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = firstNonEmpty(
			os.Getenv("BETTER_AUTH_URL"),
			os.Getenv("PUBLIC_BETTER_AUTH_URL"),
			defaultPublicBaseURL,
		)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// Validate checks cross-field rules and parses the pricing values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("public base URL %q must be an absolute URL", c.PublicBaseURL)
	}
	if !strings.HasPrefix(c.Checkout.SuccessPath, "/") {
		return errors.Errorf("checkout success path %q must start with /", c.Checkout.SuccessPath)
	}

	if _, err := c.Pricing(); err != nil {
		return err
	}

	if c.Email.APIKey == "" && !c.Email.Disabled {
		return errors.New("email API key is required: set STORE_EMAIL_API_KEY or RESEND_API_KEY, or STORE_EMAIL_DISABLED=true")
	}
	if c.Email.From == "" {
		return errors.New("email sender is required")
	}
	if !c.Auth.Disabled && (c.Auth.IssuerURL == "" || c.Auth.Audience == "") {
		return errors.New("auth issuer URL and audience are required unless STORE_AUTH_DISABLED=true")
	}
	if c.RateLimit.Max > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Checkout.RateLimitMax > 0 && c.Checkout.RateLimitWindow <= 0 {
		return errors.New("checkout rate limit window must be positive")
	}
	return nil
}

// Pricing parses the checkout fee and tax rate.
func (c *Config) Pricing() (checkout.Pricing, error) {
	fee, err := decimal.NewFromString(c.Checkout.ShippingFee)
	if err != nil || fee.IsNegative() {
		return checkout.Pricing{}, errors.Errorf("checkout shipping fee %q must be a non-negative number", c.Checkout.ShippingFee)
	}
	rate, err := decimal.NewFromString(c.Checkout.TaxRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return checkout.Pricing{}, errors.Errorf("checkout tax rate %q must be between 0 and 1", c.Checkout.TaxRate)
	}
	return checkout.Pricing{ShippingFee: fee, TaxRate: rate}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
