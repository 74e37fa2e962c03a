package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ledongthuc/pdf"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/chrome"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
)

// SurfaceProvider hands out rendering surfaces. *chrome.Launcher implements it.
type SurfaceProvider interface {
	Acquire(ctx context.Context) (*chrome.Surface, error)
}

// WaitMode selects what the capture waits for after the markup is loaded.
type WaitMode int

const (
	// WaitDependencies waits for the readiness signal (fonts and images).
	WaitDependencies WaitMode = iota
	// WaitStructure captures as soon as <body> is attached. Only useful to
	// show what a premature capture looks like.
	WaitStructure
)

// rasterScale is the device scale of the rasterize-image screenshot.
const rasterScale = 2

// Options are the render settings taken from config.
type Options struct {
	FontPath         string
	FontFamily       string
	FontURL          string
	FontSizePx       int
	Paper            config.PaperSize
	MarginInches     float64
	ReadinessTimeout time.Duration
	SettleDelay      time.Duration
	Timeout          time.Duration
}

// OptionsFromConfig copies the render section of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		FontPath:         cfg.Render.FontPath,
		FontFamily:       cfg.Render.FontFamily,
		FontURL:          cfg.FontURL(),
		FontSizePx:       cfg.Render.FontSizePx,
		Paper:            cfg.Render.Paper,
		MarginInches:     cfg.Render.MarginInches,
		ReadinessTimeout: cfg.Render.ReadinessTimeout,
		SettleDelay:      cfg.Render.SettleDelay,
		Timeout:          cfg.Render.Timeout,
	}
}

// Renderer implements render-and-capture.
type Renderer struct {
	surfaces SurfaceProvider
	opts     Options
	builder  *Builder
}

// New creates a Renderer.
func New(surfaces SurfaceProvider, opts Options) *Renderer {
	if opts.Paper.Width <= 0 || opts.Paper.Height <= 0 {
		opts.Paper = config.A4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = 10 * time.Second
	}
	return &Renderer{
		surfaces: surfaces,
		opts:     opts,
		builder:  &Builder{FontURL: opts.FontURL, FontSizePx: opts.FontSizePx},
	}
}

// Render produces the PDF for req. The font is checked before a browser is
// started, so a missing font never costs a browser launch.
func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) (*domain.Artifact, error) {
	if req.Strategy == "" {
		req.Strategy = domain.FontEmbedBase64
	}
	if req.Dir == "" {
		req.Dir = Direction(req.Text)
	}

	font, err := LoadFont(r.opts.FontPath, r.opts.FontFamily)
	if err != nil {
		return nil, err
	}
	if missing := font.MissingGlyphs(req.Text); len(missing) > 0 {
		logging.Warn("Font lacks glyphs for some characters; browser will fall back", "font", font.Path, "missing", string(missing))
	}

	doc, err := r.builder.Build(req, font)
	if err != nil {
		return nil, domain.NewError(domain.KindCaptureFailure, "build markup", err)
	}

	var art *domain.Artifact
	if req.Strategy == domain.FontRasterizeImage {
		art, err = r.captureRasterized(ctx, req, font, doc)
	} else {
		art, err = r.Capture(ctx, doc, WaitDependencies)
	}
	if err != nil {
		return nil, err
	}
	art.Filename = req.Filename
	return art, nil
}

// Capture loads doc into a fresh surface, waits according to mode and prints
// it. The surface is released on every path.
func (r *Renderer) Capture(ctx context.Context, doc Document, mode WaitMode) (*domain.Artifact, error) {
	return r.withSurface(ctx, func(tab context.Context) (*domain.Artifact, error) {
		if err := r.load(tab, doc, mode); err != nil {
			return nil, err
		}
		return r.print(tab)
	})
}

func (r *Renderer) captureRasterized(ctx context.Context, req domain.RenderRequest, font *FontAsset, textDoc Document) (*domain.Artifact, error) {
	return r.withSurface(ctx, func(tab context.Context) (*domain.Artifact, error) {
		if err := r.load(tab, textDoc, WaitDependencies); err != nil {
			return nil, err
		}
		var png []byte
		if err := chromedp.Run(tab, chromedp.ScreenshotScale("#content", rasterScale, &png, chromedp.ByQuery)); err != nil {
			return nil, domain.NewError(domain.KindCaptureFailure, "rasterize text", err)
		}
		imgDoc, err := r.builder.ImagePage(req, font, png, rasterScale)
		if err != nil {
			return nil, domain.NewError(domain.KindCaptureFailure, "build image page", err)
		}
		if err := r.load(tab, imgDoc, WaitDependencies); err != nil {
			return nil, err
		}
		return r.print(tab)
	})
}

// withSurface acquires a surface, runs fn on its tab under the render
// timeout and releases the surface afterwards, panics included.
func (r *Renderer) withSurface(ctx context.Context, fn func(tab context.Context) (*domain.Artifact, error)) (*domain.Artifact, error) {
	surface, err := r.surfaces.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer surface.Release()

	tab, cancel := context.WithTimeout(surface.Ctx, r.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	art, err := fn(tab)
	if err != nil {
		if ctx.Err() != nil && chrome.IsSessionInterrupted(err) {
			logging.Warn("Render interrupted by caller", "error", err)
		}
		return nil, err
	}
	if err := inspect(art); err != nil {
		return nil, err
	}
	return art, nil
}

func (r *Renderer) load(tab context.Context, doc Document, mode WaitMode) error {
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, doc.HTML).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return domain.NewError(domain.KindCaptureFailure, "load markup", err)
	}
	if mode == WaitStructure {
		return nil
	}

	if err := waitForRenderReady(tab, r.opts.ReadinessTimeout); err != nil {
		return err
	}

	if r.opts.SettleDelay > 0 {
		if err := chromedp.Run(tab, chromedp.Sleep(r.opts.SettleDelay)); err != nil {
			return domain.NewError(domain.KindCaptureFailure, "settle", err)
		}
	}
	return nil
}

// waitForRenderReady polls the readiness flag until it is set or timeout
// elapses. Running out of time, either the poll's or the tab's, is a
// readiness timeout.
func waitForRenderReady(tab context.Context, timeout time.Duration) error {
	err := chromedp.Run(tab, chromedp.Poll(readyExpr, nil,
		chromedp.WithPollingInterval(50*time.Millisecond),
		chromedp.WithPollingTimeout(timeout),
	))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chromedp.ErrPollingTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.NewError(domain.KindReadinessTimeout, "wait for fonts and images",
			fmt.Errorf("no readiness signal within %s: %w", timeout, err))
	default:
		return domain.NewError(domain.KindCaptureFailure, "wait for fonts and images", err)
	}
}

func (r *Renderer) print(tab context.Context) (*domain.Artifact, error) {
	var (
		ready  bool
		pdfBuf []byte
	)
	err := chromedp.Run(tab,
		chromedp.Evaluate(readyExpr, &ready),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(r.opts.Paper.Width).
				WithPaperHeight(r.opts.Paper.Height).
				WithMarginTop(r.opts.MarginInches).
				WithMarginBottom(r.opts.MarginInches).
				WithMarginLeft(r.opts.MarginInches).
				WithMarginRight(r.opts.MarginInches).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, domain.NewError(domain.KindCaptureFailure, "print to pdf", err)
	}
	return &domain.Artifact{PDF: pdfBuf, DependenciesReady: ready}, nil
}

var pdfMagic = []byte("%PDF-")

// inspect rejects output that is not a PDF and records the page count.
// A PDF the reader cannot parse is still returned; Chrome's output is
// authoritative, the count is informational.
func inspect(art *domain.Artifact) error {
	if len(art.PDF) == 0 {
		return domain.NewError(domain.KindCaptureFailure, "inspect pdf", errors.New("browser returned an empty document"))
	}
	if !bytes.HasPrefix(art.PDF, pdfMagic) {
		return domain.NewError(domain.KindCaptureFailure, "inspect pdf", errors.New("browser output is not a PDF"))
	}
	pages, err := countPages(art.PDF)
	if err != nil {
		logging.Warn("Could not count PDF pages", "bytes", len(art.PDF), "error", err)
		return nil
	}
	art.Pages = pages
	return nil
}

func countPages(data []byte) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panicked: %v", p)
		}
	}()
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return rd.NumPage(), nil
}
