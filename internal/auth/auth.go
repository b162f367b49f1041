// Package auth validates admin bearer tokens issued by an external OpenID
// provider. Tokens are checked against the provider's JWKS; no users or
// sessions are stored here.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const (
	subjectKey = "auth.subject"
	claimsKey  = "auth.claims"
)

// Config describes the token issuer.
type Config struct {
	// IssuerURL is the provider base URL, e.g. https://tenant.eu.auth0.com/.
	IssuerURL string
	Audience  string
	// Scope, when set, must be granted to the token (scope or permissions claim).
	Scope string
}

// CustomClaims holds the authorization claims read from the token.
type CustomClaims struct {
	Scope       string   `json:"scope"`
	Permissions []string `json:"permissions"`
}

// Validate implements validator.CustomClaims.
func (c CustomClaims) Validate(context.Context) error {
	return nil
}

// HasScope reports whether scope is granted either in the space-separated
// scope claim or in the permissions array.
func (c CustomClaims) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope) || slices.Contains(c.Permissions, scope)
}

// Middleware returns a gin middleware that rejects requests without a valid
// bearer token and stores the validated claims in the gin context.
func Middleware(cfg Config) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse issuer url")
	}
	if !strings.HasSuffix(issuerURL.Path, "/") {
		issuerURL.Path += "/"
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create jwt validator")
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			zctx.From(r.Context()).Info("Rejected admin token", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"Unauthorized"}`))
		}),
	)

	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				return
			}
			passed = true
			c.Request = r
			c.Set(claimsKey, claims)
			c.Set(subjectKey, claims.RegisteredClaims.Subject)
		})
		mw.CheckJWT(next).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

// Trusted returns a middleware that accepts every request as subject. It is
// used when token validation is switched off for local development.
func Trusted(subject string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(subjectKey, subject)
		c.Next()
	}
}

// RequireScope rejects tokens that were not granted scope. It must run after
// Middleware.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(claimsKey)
		claims, _ := v.(*validator.ValidatedClaims)
		if !ok || claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		custom, _ := claims.CustomClaims.(*CustomClaims)
		if custom == nil || !custom.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient scope"})
			return
		}
		c.Next()
	}
}

// Subject returns the authenticated subject, or "anonymous".
func Subject(c *gin.Context) string {
	if s := c.GetString(subjectKey); s != "" {
		return s
	}
	return "anonymous"
}
