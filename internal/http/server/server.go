// Package server assembles the fiber application.
package server

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/http/handlers"
	"github.com/LoveCode20/arabic-pdf-pages/internal/http/middleware"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/metrics"
	"github.com/LoveCode20/arabic-pdf-pages/web"
)

// Deps are the services the routes need.
type Deps struct {
	Config   config.Config
	Renderer handlers.Renderer
	// Launcher is optional; it feeds /v1/chrome/stats and readiness.
	Launcher handlers.LauncherStats
	// Stats is optional; nil disables outcome counters.
	Stats *metrics.RenderStats
	// Tokens is optional; nil disables API key auth.
	Tokens middleware.TokenStore
	// Store overrides the limiter storage, mainly for tests.
	Store fiber.Storage
}

// New creates the app with middleware, routes and a JSON error handler.
func New(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, cfg, middleware.Deps{
		Tokens: deps.Tokens,
		Store:  deps.Store,
		Ready:  readiness(deps.Launcher),
	})
	RegisterRoutes(app, deps)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers on app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config
	svc := handlers.NewPDFService(cfg, deps.Renderer, deps.Launcher, deps.Stats)

	app.Get("/", handlers.HandleIndex(web.Index))
	app.Get("/api/pdf", svc.HandlePDF)
	app.Static(config.FontRoute, filepath.Dir(cfg.Render.FontPath), fiber.Static{
		ByteRange: true,
	})

	v1 := app.Group("/v1")
	v1.Get("/pdf", svc.HandlePDF)
	v1.Get("/chrome/stats", svc.HandleChromeStats)
	v1.Get("/monitor", monitor.New(monitor.Config{Title: "arabic-pdf monitor"}))
}

func readiness(l handlers.LauncherStats) func() bool {
	if l == nil {
		return nil
	}
	return func() bool {
		return !l.Stats().Closed
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
