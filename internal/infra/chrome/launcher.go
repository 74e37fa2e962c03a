package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
)

// spawnFunc starts a browser and returns a context bound to its single tab
// plus a teardown that stops the process.
type spawnFunc func(ctx context.Context, cfg config.Config, execPath, profileDir string) (context.Context, func(), error)

// Launcher hands out rendering surfaces. Every surface is a fresh browser
// process with its own profile directory; nothing is reused between renders.
// The semaphore bounds how many browsers run at once.
type Launcher struct {
	cfg config.Config
	sem chan struct{}

	mu          sync.Mutex
	closed      bool
	inUse       int
	launched    int64
	failures    int64
	lastFailure string
	lastLaunch  time.Time

	spawn     spawnFunc
	resolve   func(config.Config) (string, error)
	closeWait time.Duration
}

// NewLauncher creates a launcher allowing cfg.Render.MaxConcurrent browsers.
func NewLauncher(cfg config.Config) *Launcher {
	n := cfg.Render.MaxConcurrent
	if n <= 0 {
		n = 1
	}
	l := &Launcher{
		cfg:       cfg,
		sem:       make(chan struct{}, n),
		spawn:     spawnBrowser,
		resolve:   ResolveExecPath,
		closeWait: 5 * time.Second,
	}
	for i := 0; i < n; i++ {
		l.sem <- struct{}{}
	}
	return l
}

// Surface is one browser tab owned by a single render. Release must be called
// on every path; it is safe to call more than once.
type Surface struct {
	Ctx        context.Context
	ProfileDir string

	once    sync.Once
	release func()
}

// NewSurface wraps a tab context and its release func, for providers other
// than the Launcher.
func NewSurface(ctx context.Context, release func()) *Surface {
	return &Surface{Ctx: ctx, release: release}
}

// Release closes the browser, removes its profile and frees the slot.
func (s *Surface) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Acquire waits for a free slot and starts a browser. Failures are reported
// as domain.KindEngineLaunchFailure and leave nothing running.
func (l *Launcher) Acquire(ctx context.Context) (*Surface, error) {
	select {
	case <-l.sem:
	case <-ctx.Done():
		return nil, domain.NewError(domain.KindEngineLaunchFailure, "wait for browser slot", ctx.Err())
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.sem <- struct{}{}
		return nil, domain.NewError(domain.KindEngineLaunchFailure, "acquire", errors.New("launcher closed"))
	}
	l.inUse++
	l.mu.Unlock()

	giveBack := func() {
		l.mu.Lock()
		l.inUse--
		l.mu.Unlock()
		l.sem <- struct{}{}
	}
	fail := func(op string, err error) (*Surface, error) {
		l.mu.Lock()
		l.failures++
		l.lastFailure = err.Error()
		l.mu.Unlock()
		giveBack()
		logging.Error("Browser launch failed", "op", op, "environment", string(l.cfg.Environment), "error", err)
		return nil, domain.NewError(domain.KindEngineLaunchFailure, op, err)
	}

	execPath, err := l.resolve(l.cfg)
	if err != nil {
		return fail("resolve executable", err)
	}
	profileDir, err := createProfileDir(l.cfg)
	if err != nil {
		return fail("create profile dir", err)
	}
	tabCtx, teardown, err := l.spawn(ctx, l.cfg, execPath, profileDir)
	if err != nil {
		_ = os.RemoveAll(profileDir)
		return fail("start browser", err)
	}

	l.mu.Lock()
	l.launched++
	l.lastLaunch = time.Now()
	l.mu.Unlock()

	s := &Surface{Ctx: tabCtx, ProfileDir: profileDir}
	s.release = func() {
		teardown()
		if err := os.RemoveAll(profileDir); err != nil {
			logging.Warn("Failed to remove chrome profile dir", "dir", profileDir, "error", err)
		}
		giveBack()
	}
	return s, nil
}

// spawnBrowser starts Chrome and opens one tab. The allocator hangs off
// context.Background so the process lives until teardown, not until the
// caller's context ends; the launch itself is still bounded.
func spawnBrowser(ctx context.Context, cfg config.Config, execPath, profileDir string) (context.Context, func(), error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(cfg, execPath, profileDir)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	kill := func() {
		cancelTab()
		cancelAlloc()
	}

	// The first Run allocates the browser. It must not carry a deadline, or
	// the browser would die with it.
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(cfg.Chrome.LaunchTimeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err != nil {
			kill()
			return nil, nil, err
		}
	case <-timer.C:
		kill()
		return nil, nil, fmt.Errorf("browser did not start within %s", cfg.Chrome.LaunchTimeout)
	case <-ctx.Done():
		kill()
		return nil, nil, ctx.Err()
	}

	teardown := func() {
		closeCtx, cancel := context.WithTimeout(tabCtx, 5*time.Second)
		if err := chromedp.Cancel(closeCtx); err != nil && !IsSessionInterrupted(err) {
			logging.Warn("Graceful browser close failed", "error", err)
		}
		cancel()
		kill()
	}
	return tabCtx, teardown, nil
}

// createProfileDir makes a throw-away user data dir under the configured base
// (or the system temp dir).
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.Chrome.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("cannot create chrome profile base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "arabicpdf-chrome-*")
	if err != nil {
		return "", fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	return dir, nil
}

// Stats is a snapshot for the stats endpoint.
type Stats struct {
	Environment    string    `json:"environment"`
	Capacity       int       `json:"capacity"`
	Idle           int       `json:"idle"`
	InUse          int       `json:"in_use"`
	Launched       int64     `json:"launched"`
	LaunchFailures int64     `json:"launch_failures"`
	LastFailure    string    `json:"last_failure,omitempty"`
	LastLaunch     time.Time `json:"last_launch,omitempty"`
	Closed         bool      `json:"closed"`
}

func (l *Launcher) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Environment:    string(l.cfg.Environment),
		Capacity:       cap(l.sem),
		Idle:           cap(l.sem) - l.inUse,
		InUse:          l.inUse,
		Launched:       l.launched,
		LaunchFailures: l.failures,
		LastFailure:    l.lastFailure,
		LastLaunch:     l.lastLaunch,
		Closed:         l.closed,
	}
}

// Close stops handing out surfaces and waits a bounded time for running
// renders to release theirs. It is idempotent.
func (l *Launcher) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	deadline := time.Now().Add(l.closeWait)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		busy := l.inUse
		l.mu.Unlock()
		if busy == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	logging.Warn("Launcher closed with renders still running", "in_use", l.Stats().InUse)
}

// IsSessionInterrupted reports errors caused by a browser or tab going away
// (cancelled context, closed target, dropped websocket).
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "session closed", "websocket", "invalid context", "connection reset", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
