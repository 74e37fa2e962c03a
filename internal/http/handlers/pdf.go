package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LoveCode20/arabic-pdf-pages/internal/config"
	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/chrome"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/metrics"
)

// Renderer turns a request into a PDF. *render.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (*domain.Artifact, error)
}

// LauncherStats reports browser launcher state. *chrome.Launcher implements it.
type LauncherStats interface {
	Stats() chrome.Stats
}

// PDFService bundles configuration and dependencies for the PDF endpoints.
type PDFService struct {
	Config   config.Config
	Renderer Renderer
	Launcher LauncherStats
	Stats    *metrics.RenderStats
}

// NewPDFService creates a new PDFService. launcher and stats may be nil.
func NewPDFService(cfg config.Config, r Renderer, launcher LauncherStats, stats *metrics.RenderStats) *PDFService {
	return &PDFService{Config: cfg, Renderer: r, Launcher: launcher, Stats: stats}
}

// StatusFor maps a render failure to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindEngineLaunchFailure:
		return fiber.StatusServiceUnavailable
	case domain.KindReadinessTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// HandlePDF renders the configured sentence and returns it as a download.
// The optional "strategy" query parameter selects the font delivery.
func (svc *PDFService) HandlePDF(c *fiber.Ctx) error {
	req, err := svc.requestFrom(c)
	if err != nil {
		return err
	}

	requestID := c.GetRespHeader(fiber.HeaderXRequestID)
	start := time.Now()

	art, err := svc.Renderer.Render(c.UserContext(), req)
	if err != nil {
		kind := domain.KindOf(err)
		status := StatusFor(kind)
		svc.Stats.Record(c.UserContext(), metrics.OutcomeOf(err))
		logging.Error("PDF generation failed",
			"kind", string(kind),
			"status", status,
			"strategy", string(req.Strategy),
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return renderError(c, status, kind, err)
	}

	if limit := svc.Config.Limits.MaxPDFBytes; limit > 0 && len(art.PDF) > limit {
		svc.Stats.Record(c.UserContext(), metrics.OutcomeTooLarge)
		logging.Warn("PDF exceeds allowed size", "bytes", len(art.PDF), "max", limit, "request_id", requestID)
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}

	svc.Stats.Record(c.UserContext(), metrics.OutcomeSuccess)
	logging.Info("PDF generated",
		"filename", art.Filename,
		"bytes", len(art.PDF),
		"pages", art.Pages,
		"strategy", string(req.Strategy),
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+art.Filename)
	return c.Send(art.PDF)
}

func (svc *PDFService) requestFrom(c *fiber.Ctx) (domain.RenderRequest, error) {
	name := c.Query("strategy", svc.Config.Render.Strategy)
	strategy, err := domain.ParseFontStrategy(name)
	if err != nil {
		return domain.RenderRequest{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	filename := svc.Config.Render.Filename
	if filename == "" {
		filename = "arabic.pdf"
	}
	return domain.RenderRequest{
		Text:     svc.Config.Render.Text,
		Lang:     svc.Config.Render.Lang,
		Strategy: strategy,
		Filename: filename,
	}, nil
}

func renderError(c *fiber.Ctx, status int, kind domain.Kind, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    status,
			"kind":    string(kind),
			"message": fmt.Sprintf("PDF generation failed: %v", err),
		},
	})
}

// HandleChromeStats exposes launcher state and render outcome counters.
func (svc *PDFService) HandleChromeStats(c *fiber.Ctx) error {
	outcomes, err := svc.Stats.Snapshot(c.UserContext())
	if err != nil {
		logging.Warn("Failed to read render stats", "error", err)
	}

	body := fiber.Map{
		"environment":      string(svc.Config.Environment),
		"max_concurrent":   svc.Config.Render.MaxConcurrent,
		"timeout_secs":     int(svc.Config.Render.Timeout.Seconds()),
		"stats_persistent": svc.Stats.Enabled(),
		"outcomes":         outcomes,
	}
	if svc.Launcher != nil {
		body["launcher"] = svc.Launcher.Stats()
	}
	return c.JSON(body)
}
