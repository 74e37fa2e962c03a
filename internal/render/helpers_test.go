package render

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/chrome"
)

const arabicText = "مرحبا بالعالم"

// writeTestFont puts a valid TrueType font (Go Regular) on disk.
func writeTestFont(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "GoRegular.ttf")
	if err := os.WriteFile(p, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return p
}

func testOptions(fontPath string) Options {
	return Options{
		FontPath:         fontPath,
		FontFamily:       "ArabicFont",
		FontSizePx:       48,
		Paper:            config.A4,
		MarginInches:     0.4,
		ReadinessTimeout: 5 * time.Second,
		SettleDelay:      50 * time.Millisecond,
		Timeout:          20 * time.Second,
	}
}

// countingProvider hands out surfaces over plain contexts and records
// acquisitions and releases.
type countingProvider struct {
	acquired atomic.Int32
	released atomic.Int32
	err      error
}

func (p *countingProvider) Acquire(ctx context.Context) (*chrome.Surface, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired.Add(1)
	tab, cancel := context.WithCancel(context.Background())
	return chrome.NewSurface(tab, func() {
		cancel()
		p.released.Add(1)
	}), nil
}

// browserLauncher returns a real launcher or skips when no browser is installed.
func browserLauncher(t *testing.T, slots int) *chrome.Launcher {
	t.Helper()
	cfg := config.Default()
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		cfg.Chrome.Local.ExecPath = bin
	}
	if _, err := chrome.ResolveExecPath(cfg); err != nil {
		t.Skipf("no browser available: %v", err)
	}
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	cfg.Render.MaxConcurrent = slots
	cfg.Chrome.UserDataDir = t.TempDir()
	l := chrome.NewLauncher(cfg)
	t.Cleanup(l.Close)
	return l
}
