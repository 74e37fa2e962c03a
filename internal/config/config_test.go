package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":9000"
`)
	cfg := LoadFrom(p)
	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, EnvLocal, cfg.Environment)
	assert.Equal(t, "embed-base64", cfg.Render.Strategy)
	assert.Equal(t, "arabic.pdf", cfg.Render.Filename)
	assert.Equal(t, A4, cfg.Render.Paper)
	assert.Equal(t, 10*time.Second, cfg.Render.ReadinessTimeout)
}

func TestLoadFrom_Valid(t *testing.T) {
	p := writeConfig(t, `environment: managed
render:
  strategy: rasterize-image
  readiness_timeout: 3s
  settle_delay: 0s
  timeout: 5s
  max_concurrent: 4
chrome:
  serverless:
    exec_path: /opt/bundled/chromium
`)
	cfg := LoadFrom(p)
	assert.Equal(t, EnvServerless, cfg.Environment)
	assert.Equal(t, "/opt/bundled/chromium", cfg.Profile().ExecPath)
	assert.Equal(t, 4, cfg.Render.MaxConcurrent)
	assert.Equal(t, time.Duration(0), cfg.Render.SettleDelay)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown environment", yml: "environment: mainframe\n"},
		{name: "unknown strategy", yml: "render:\n  strategy: svg\n"},
		{name: "filename without pdf", yml: "render:\n  filename: out.txt\n"},
		{name: "zero readiness timeout", yml: "render:\n  readiness_timeout: 0s\n"},
		{name: "timeout shorter than readiness", yml: "render:\n  readiness_timeout: 5s\n  timeout: 1s\n"},
		{name: "negative settle", yml: "render:\n  settle_delay: -1s\n"},
		{name: "no concurrency", yml: "render:\n  max_concurrent: 0\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "broken yaml", yml: "render: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "render:\n  filename: env.pdf\n")
	t.Setenv("CONFIG_PATH", p)
	cfg := Load()
	assert.Equal(t, "env.pdf", cfg.Render.Filename)
}

func TestParseEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"":            EnvLocal,
		"local":       EnvLocal,
		"Interactive": EnvLocal,
		"serverless":  EnvServerless,
		" managed ":   EnvServerless,
		"production":  EnvServerless,
	}
	for in, want := range tests {
		got, err := ParseEnvironment(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEnvironment("lambda-on-mars")
	assert.Error(t, err)
}

func TestFontURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://127.0.0.1:3000/fonts/NotoNaskhArabic-Regular.ttf", cfg.FontURL())

	cfg.Server.PublicURL = "https://pdf.example.com/"
	assert.Equal(t, "https://pdf.example.com/fonts/NotoNaskhArabic-Regular.ttf", cfg.FontURL())
}

func TestPostgresDSN_BuildsURL(t *testing.T) {
	dsn, err := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "arabicpdf",
		User:     "user",
		Password: "p@ss word",
		SSLMode:  "disable",
	}.DSN()
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/arabicpdf", u.Path)
	assert.Equal(t, "user", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestPostgresDSN_PassthroughAndErrors(t *testing.T) {
	raw := "postgres://u:p@localhost:5432/db?sslmode=disable"
	dsn, err := PostgresConfig{Host: raw}.DSN()
	require.NoError(t, err)
	assert.Equal(t, raw, dsn)

	dsn, err = PostgresConfig{Host: "::1", Database: "db", User: "u"}.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "[::1]:5432")

	_, err = PostgresConfig{Host: "db"}.DSN()
	assert.Error(t, err)
	_, err = PostgresConfig{}.DSN()
	assert.Error(t, err)
}
