package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
)

// PaperSize is a page size in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig describes the optional API token database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a token database is configured at all.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN builds a postgres:// URL. A host that already is a URL is passed through.
func (p PostgresConfig) DSN() (string, error) {
	if strings.HasPrefix(p.Host, "postgres://") || strings.HasPrefix(p.Host, "postgresql://") {
		return p.Host, nil
	}
	if p.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if p.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if p.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	port := p.Port
	if port == 0 {
		port = 5432
	}
	hostPort := p.Host
	switch {
	case strings.HasPrefix(hostPort, "["):
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	case strings.Count(hostPort, ":") >= 2:
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	case !strings.Contains(hostPort, ":"):
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + p.Database}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else {
		u.User = url.User(p.User)
	}
	q := u.Query()
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ChromeProfile holds the launch parameters for one environment.
type ChromeProfile struct {
	ExecPath string `yaml:"exec_path"`
}

// Config is the full service configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Server struct {
		Host      string `yaml:"host"`
		Port      string `yaml:"port"`
		Prefork   bool   `yaml:"prefork"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`

	Limits struct {
		MaxPDFBytes int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost   string `yaml:"redis_host"`
		RateLimitDB int    `yaml:"redis_rate_db"`
		StatsDB     int    `yaml:"redis_stats_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres       PostgresConfig `yaml:"postgres"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
	} `yaml:"auth"`

	Render struct {
		Text             string        `yaml:"text"`
		Lang             string        `yaml:"lang"`
		Filename         string        `yaml:"filename"`
		Strategy         string        `yaml:"strategy"`
		FontPath         string        `yaml:"font_path"`
		FontFamily       string        `yaml:"font_family"`
		FontSizePx       int           `yaml:"font_size_px"`
		Paper            PaperSize     `yaml:"paper"`
		MarginInches     float64       `yaml:"margin"`
		ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
		SettleDelay      time.Duration `yaml:"settle_delay"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxConcurrent    int           `yaml:"max_concurrent"`
	} `yaml:"render"`

	Chrome struct {
		UserDataDir   string        `yaml:"user_data_dir"`
		LaunchTimeout time.Duration `yaml:"launch_timeout"`
		Serverless    ChromeProfile `yaml:"serverless"`
		Local         ChromeProfile `yaml:"local"`
	} `yaml:"chrome"`
}

// A4 in inches.
var A4 = PaperSize{Width: 8.27, Height: 11.69}

// Default returns a configuration that renders the demo sentence locally.
func Default() Config {
	var cfg Config
	cfg.Environment = EnvLocal
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":3000"
	cfg.Limits.MaxPDFBytes = 10 * 1024 * 1024
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7
	cfg.RateLimiter.Interval = time.Minute
	cfg.Auth.ReloadInterval = time.Minute
	cfg.Render.Text = "مرحبا بالعالم"
	cfg.Render.Lang = "ar"
	cfg.Render.Filename = "arabic.pdf"
	cfg.Render.Strategy = "embed-base64"
	cfg.Render.FontPath = "public/fonts/NotoNaskhArabic-Regular.ttf"
	cfg.Render.FontFamily = "ArabicFont"
	cfg.Render.FontSizePx = 48
	cfg.Render.Paper = A4
	cfg.Render.MarginInches = 0.4
	cfg.Render.ReadinessTimeout = 10 * time.Second
	cfg.Render.SettleDelay = 200 * time.Millisecond
	cfg.Render.Timeout = 30 * time.Second
	cfg.Render.MaxConcurrent = 2
	cfg.Chrome.LaunchTimeout = 20 * time.Second
	cfg.Chrome.Serverless.ExecPath = "/opt/chromium/chromium"
	return cfg
}

// Load reads the config file named by CONFIG_PATH (default config.yaml).
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path on top of Default().
// It panics on unreadable files and invalid values; the service cannot start
// without a usable configuration.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Validate checks value ranges after defaults were applied.
func (c Config) Validate() error {
	if _, err := ParseEnvironment(string(c.Environment)); err != nil {
		return err
	}
	if _, err := domain.ParseFontStrategy(c.Render.Strategy); err != nil {
		return fmt.Errorf("render.strategy: %w", err)
	}
	if c.Render.Text == "" {
		return fmt.Errorf("render.text is empty")
	}
	if !strings.HasSuffix(c.Render.Filename, ".pdf") {
		return fmt.Errorf("render.filename must end with .pdf")
	}
	if c.Render.FontPath == "" || c.Render.FontFamily == "" {
		return fmt.Errorf("render.font_path and render.font_family are required")
	}
	if c.Render.Paper.Width <= 0 || c.Render.Paper.Height <= 0 {
		return fmt.Errorf("render.paper must have a positive width and height")
	}
	if c.Render.MarginInches < 0 || c.Render.MarginInches > 2 {
		return fmt.Errorf("render.margin must be between 0 and 2 inches")
	}
	if c.Render.ReadinessTimeout <= 0 {
		return fmt.Errorf("render.readiness_timeout must be positive")
	}
	if c.Render.SettleDelay < 0 {
		return fmt.Errorf("render.settle_delay must not be negative")
	}
	if c.Render.Timeout < c.Render.ReadinessTimeout {
		return fmt.Errorf("render.timeout must be at least render.readiness_timeout")
	}
	if c.Render.MaxConcurrent <= 0 {
		return fmt.Errorf("render.max_concurrent must be positive")
	}
	if c.Chrome.LaunchTimeout <= 0 {
		return fmt.Errorf("chrome.launch_timeout must be positive")
	}
	if c.Limits.MaxPDFBytes <= 0 {
		return fmt.Errorf("limits.max_pdf_bytes must be positive")
	}
	if c.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if c.RateLimiter.Interval <= 0 {
		return fmt.Errorf("rate_limiter.interval must be positive")
	}
	if c.Auth.Postgres.Enabled() && c.Auth.ReloadInterval <= 0 {
		return fmt.Errorf("auth.reload_interval must be positive")
	}
	return nil
}

// FontURL is where the HTTP layer serves the configured font file.
func (c Config) FontURL() string {
	base := strings.TrimRight(c.Server.PublicURL, "/")
	if base == "" {
		host := c.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		base = "http://" + host + c.Server.Port
	}
	return base + FontRoute + "/" + filepath.Base(c.Render.FontPath)
}

// FontRoute is the static route prefix for the font directory.
const FontRoute = "/fonts"
