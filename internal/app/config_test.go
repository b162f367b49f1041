package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with the platform variables
// cleared so that host configuration does not leak in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{"DATABASE_URL", "PORT", "RESEND_API_KEY", "BETTER_AUTH_URL", "PUBLIC_BETTER_AUTH_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_DATABASE_URL", "postgres://store@localhost/store")
	t.Setenv("STORE_EMAIL_DISABLED", "true")
	t.Setenv("STORE_AUTH_DISABLED", "true")

	cfg, err := LoadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "http://localhost:4321", cfg.PublicBaseURL)
	assert.Equal(t, "/order-success", cfg.Checkout.SuccessPath)
	assert.Equal(t, 10, cfg.Checkout.RateLimitMax)
	assert.Equal(t, "en-IN", cfg.Email.Locale)
	assert.Equal(t, 10*time.Second, cfg.Email.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)

	pricing, err := cfg.Pricing()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(pricing.ShippingFee))
	assert.True(t, decimal.RequireFromString("0.05").Equal(pricing.TaxRate))
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("PUBLIC_BETTER_AUTH_URL", "https://shop.example/")
	t.Setenv("STORE_AUTH_DISABLED", "true")

	cfg, err := LoadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "re_test", cfg.Email.APIKey)
	assert.Equal(t, "https://shop.example", cfg.PublicBaseURL)
}

func TestLoadConfig_PrefixedWinsOverPlatform(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("STORE_DATABASE_URL", "postgres://store/db")
	t.Setenv("BETTER_AUTH_URL", "https://admin.example")
	t.Setenv("PUBLIC_BETTER_AUTH_URL", "https://public.example")
	t.Setenv("STORE_EMAIL_DISABLED", "true")
	t.Setenv("STORE_AUTH_DISABLED", "true")

	cfg, err := LoadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://store/db", cfg.DatabaseURL)
	assert.Equal(t, "https://admin.example", cfg.PublicBaseURL)
}

func TestLoadConfig_Dotenv(t *testing.T) {
	isolate(t)
	dir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"),
		[]byte("STORE_DATABASE_URL=postgres://from-env-file/db\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("STORE_DATABASE_URL=postgres://from-default-file/db\nSTORE_EMAIL_DISABLED=true\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("STORE_DATABASE_URL")
		_ = os.Unsetenv("STORE_EMAIL_DISABLED")
	})
	t.Setenv("STORE_ENV", "test")
	t.Setenv("STORE_AUTH_DISABLED", "true")

	cfg, err := LoadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres://from-env-file/db", cfg.DatabaseURL)
	assert.True(t, cfg.Email.Disabled)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_EMAIL_DISABLED", "true")
	t.Setenv("STORE_AUTH_DISABLED", "true")

	_, err := LoadConfig([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func validConfig() Config {
	return Config{
		Addr:          defaultAddr,
		DatabaseURL:   "postgres://localhost/store",
		PublicBaseURL: defaultPublicBaseURL,
		Checkout: CheckoutConfig{
			ShippingFee:     "50",
			TaxRate:         "0.05",
			SuccessPath:     "/order-success",
			RateLimitMax:    10,
			RateLimitWindow: time.Minute,
		},
		Email: EmailConfig{APIKey: "re_test", From: "Shop <orders@shop.example>"},
		Auth:  AuthConfig{IssuerURL: "https://issuer.example/", Audience: "storefront-admin"},
		RateLimit: RateLimitConfig{
			Max:    100,
			Window: time.Minute,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"RelativeBaseURL", func(c *Config) { c.PublicBaseURL = "shop.example" }, "absolute URL"},
		{"SuccessPathWithoutSlash", func(c *Config) { c.Checkout.SuccessPath = "done" }, "must start with /"},
		{"NegativeShipping", func(c *Config) { c.Checkout.ShippingFee = "-1" }, "shipping fee"},
		{"GarbageShipping", func(c *Config) { c.Checkout.ShippingFee = "fifty" }, "shipping fee"},
		{"TaxAboveOne", func(c *Config) { c.Checkout.TaxRate = "5" }, "tax rate"},
		{"NoEmailKey", func(c *Config) { c.Email.APIKey = "" }, "email API key is required"},
		{"NoSender", func(c *Config) { c.Email.From = "" }, "email sender"},
		{"NoAudience", func(c *Config) { c.Auth.Audience = "" }, "auth issuer URL and audience"},
		{"ZeroWindow", func(c *Config) { c.RateLimit.Window = 0 }, "rate limit window"},
		{"ZeroCheckoutWindow", func(c *Config) { c.Checkout.RateLimitWindow = 0 }, "checkout rate limit window"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("DisabledModesSkipCredentials", func(t *testing.T) {
		cfg := validConfig()
		cfg.Email = EmailConfig{Disabled: true, From: "x@y.z"}
		cfg.Auth = AuthConfig{Disabled: true}
		cfg.RateLimit.Max, cfg.RateLimit.Window = 0, 0
		assert.NoError(t, cfg.Validate())
	})
}
