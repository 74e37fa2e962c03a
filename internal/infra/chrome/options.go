package chrome

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
)

// localCandidates are tried in order when no executable is configured for the
// local environment. Edge comes last, it is what the Windows dev boxes have.
var localCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	"microsoft-edge",
}

// AllocatorOptions returns the exec allocator options for the configured
// environment. It is the only place where the two environments differ.
func AllocatorOptions(cfg config.Config, execPath, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)

	switch cfg.Environment {
	case config.EnvServerless:
		opts = append(opts,
			chromedp.Flag("headless", "shell"),
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("no-zygote", true),
			chromedp.Flag("single-process", true),
		)
	default:
		opts = append(opts,
			chromedp.Flag("headless", "new"),
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// ResolveExecPath returns the executable that will be started, or an error
// when none can be found. An empty configured path in the local environment
// falls back to the usual install locations.
func ResolveExecPath(cfg config.Config) (string, error) {
	if path := cfg.Profile().ExecPath; path != "" {
		if resolved, err := exec.LookPath(path); err == nil {
			return resolved, nil
		}
		if st, err := os.Stat(path); err != nil || st.IsDir() {
			return "", fmt.Errorf("chrome executable %q not found", path)
		}
		return path, nil
	}
	if cfg.Environment == config.EnvServerless {
		return "", fmt.Errorf("no bundled chrome executable configured for serverless environment")
	}
	for _, c := range localCandidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no local chrome, chromium or edge executable found")
}
