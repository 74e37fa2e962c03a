package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/http/server"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/chrome"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/metrics"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/postgres"
	"github.com/LoveCode20/arabic-pdf-pages/internal/render"
	"github.com/LoveCode20/arabic-pdf-pages/internal/tokens"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "arabicpdf:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("arabicpdf", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML config (default $CONFIG_PATH or ./config.yaml)")
	environment := fs.String("environment", "", "override the environment: serverless or local")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := loadConfig(*configPath)
	if *environment != "" {
		env, err := config.ParseEnvironment(*environment)
		if err != nil {
			return err
		}
		cfg.Environment = env
	}
	applyChromeBin(&cfg)

	if err := ensureLogDir(cfg.Logger.File); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	undoProcs, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		logging.Debug(fmt.Sprintf(format, a...))
	}))
	if err != nil {
		logging.Warn("Failed to set GOMAXPROCS", "error", err)
	}
	defer undoProcs()

	if _, err := render.LoadFont(cfg.Render.FontPath, cfg.Render.FontFamily); err != nil {
		logging.Warn("Font not usable; renders will fail until it is installed", "path", cfg.Render.FontPath, "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.Cache.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.StatsDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	launcher := chrome.NewLauncher(cfg)
	defer launcher.Close()

	deps := server.Deps{
		Config:   cfg,
		Renderer: render.New(launcher, render.OptionsFromConfig(cfg)),
		Launcher: launcher,
		Stats:    metrics.New(rdb),
	}

	if cfg.Auth.Postgres.Enabled() {
		cache, db, err := startTokenReloader(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		deps.Tokens = cache
	}

	logging.Info("Starting server",
		"addr", cfg.Server.Host+cfg.Server.Port,
		"environment", string(cfg.Environment),
		"strategy", cfg.Render.Strategy,
		"max_concurrent", cfg.Render.MaxConcurrent,
	)

	app := server.New(deps)
	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	return nil
}

// loadConfig reads path, else $CONFIG_PATH, else ./config.yaml when present.
// Without any file the built-in defaults are used.
func loadConfig(path string) config.Config {
	if path != "" {
		return config.LoadFrom(path)
	}
	if os.Getenv("CONFIG_PATH") != "" {
		return config.Load()
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.LoadFrom("config.yaml")
	}
	return config.Default()
}

// applyChromeBin lets the common container variable pick the browser for the
// active environment.
func applyChromeBin(cfg *config.Config) {
	v := os.Getenv("CHROME_BIN")
	if v == "" {
		return
	}
	if cfg.Environment == config.EnvServerless {
		cfg.Chrome.Serverless.ExecPath = v
		return
	}
	cfg.Chrome.Local.ExecPath = v
}

func startTokenReloader(ctx context.Context, cfg config.Config) (*tokens.Cache, *postgres.DB, error) {
	dsn, err := cfg.Auth.Postgres.DSN()
	if err != nil {
		return nil, nil, fmt.Errorf("auth.postgres: %w", err)
	}
	db := postgres.NewDB()
	cache := tokens.NewCache()
	reloader := tokens.NewReloader(postgres.NewTokenRepository(db, dsn), cache, cfg.Auth.ReloadInterval)
	if err := reloader.LoadOnce(ctx); err != nil {
		// Keys are answered with 503 until a reload succeeds.
		logging.Error("Failed to load API tokens", "error", err)
	} else {
		logging.Info("API tokens loaded", "count", cache.Len())
	}
	reloader.Start(ctx)
	return cache, db, nil
}

func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return nil
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
