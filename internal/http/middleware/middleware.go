// Package middleware registers the global fiber middleware.
package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/ratelimit"
	"github.com/LoveCode20/arabic-pdf-pages/internal/tokens"
)

// APIKeyHeader carries the optional API token.
const APIKeyHeader = "X-API-Key"

// TokenStore validates API keys and reports their limits. *tokens.Cache
// implements it.
type TokenStore interface {
	TokenRater
	Validate(key string) error
}

// Deps are the collaborators Register wires in. Every field is optional.
type Deps struct {
	// Tokens enables X-API-Key auth. When nil, any presented key is
	// answered with 503 because no token store is configured.
	Tokens TokenStore
	// Store holds limiter state. When nil one is built from cfg.Cache.
	Store fiber.Storage
	// Ready backs the readiness endpoint.
	Ready func() bool
}

// Register attaches the global middleware to app.
func Register(app *fiber.App, cfg config.Config, deps Deps) {
	store := deps.Store
	if store == nil {
		store = ratelimit.NewStore(ratelimit.RedisConfig{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.RateLimitDB,
		})
	}

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	hc := healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
	}
	if deps.Ready != nil {
		hc.ReadinessProbe = func(*fiber.Ctx) bool { return deps.Ready() }
	}
	app.Use(healthcheck.New(hc))

	app.Use(KeyAuth(deps.Tokens))

	rl := RateLimitConfig{
		RateInterval:           cfg.RateLimiter.Interval,
		EnableTokenRateLimiter: deps.Tokens != nil,
		EnableUserLimiter:      cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0,
		UserLimit:              cfg.RateLimiter.UserLimit,
	}
	if deps.Tokens != nil {
		app.Use(TokenRateLimit(rl, deps.Tokens, store, NewLimiterCache()))
	}
	if rl.EnableUserLimiter {
		app.Use(UserRateLimit(rl, store))
	}

	app.Use(RequestLogger())
}

// KeyAuth validates X-API-Key when one is presented. Requests without the
// header stay anonymous.
func KeyAuth(store TokenStore) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + APIKeyHeader,
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if store == nil {
				return false, tokens.ErrStoreNotReady
			}
			if err := store.Validate(key); err != nil {
				return false, err
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get(APIKeyHeader) == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may call this with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, tokens.ErrStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

// RequestLogger logs every request after it was handled.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = c.GetRespHeader(fiber.HeaderXRequestID)
		}
		if err != nil {
			// Status is set later by the app error handler.
			logging.Info("Request failed", "method", c.Method(), "path", c.Path(), "request_id", requestID, "error", err)
			return err
		}
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"request_id", requestID,
		)
		return nil
	}
}
