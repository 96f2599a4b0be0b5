package render

import (
	"context"
	"fmt"
	"log/slog"

	"certforge/internal/config"
	"certforge/internal/template"
)

// Format is the artifact type produced by a backend.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "application/pdf"
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// ParseFormat validates a requested format string, defaulting to PDF.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "pdf":
		return FormatPDF, true
	case "png":
		return FormatPNG, true
	default:
		return "", false
	}
}

// Result is a rendered binary artifact.
type Result struct {
	Data   []byte
	Format Format
}

// Backend is one concrete rendering strategy over a substituted document.
type Backend interface {
	Name() string
	Format() Format
	Render(ctx context.Context, doc template.TemplateData) (*Result, error)
}

// BrowserPrintBackend renders the composed HTML in a headless browser and
// prints it to a PDF sized exactly to the page.
type BrowserPrintBackend struct {
	cfg     config.RenderConfig
	factory SessionFactory
	logger  *slog.Logger
}

// NewBrowserPrintBackend constructs the browser-print PDF backend.
func NewBrowserPrintBackend(cfg config.RenderConfig, factory SessionFactory, logger *slog.Logger) *BrowserPrintBackend {
	return &BrowserPrintBackend{cfg: cfg, factory: factory, logger: logger}
}

func (b *BrowserPrintBackend) Name() string   { return "browser-print" }
func (b *BrowserPrintBackend) Format() Format { return FormatPDF }

func (b *BrowserPrintBackend) Render(ctx context.Context, doc template.TemplateData) (*Result, error) {
	// Fail fast before any launch attempt.
	if !b.cfg.PDFPrintEnabled {
		return nil, ErrPDFPrintDisabled
	}
	if !b.cfg.BrowserEnabled {
		return nil, ErrBrowserDisabled
	}

	page := doc.PageSettings.Normalized()
	session, err := openRenderedSession(ctx, b.factory, b.logger, doc)
	if err != nil {
		return nil, err
	}
	defer closeSession(session, b.logger)

	data, err := session.PrintPDF(ctx, page.Width, page.Height)
	if err != nil {
		return nil, fmt.Errorf("pdf generation failed: %w", err)
	}
	return &Result{Data: data, Format: FormatPDF}, nil
}

// BrowserScreenshotBackend renders the same HTML and rasterizes the page
// container to a PNG at elevated pixel density.
type BrowserScreenshotBackend struct {
	cfg     config.RenderConfig
	factory SessionFactory
	logger  *slog.Logger
}

// NewBrowserScreenshotBackend constructs the browser-screenshot PNG backend.
func NewBrowserScreenshotBackend(cfg config.RenderConfig, factory SessionFactory, logger *slog.Logger) *BrowserScreenshotBackend {
	return &BrowserScreenshotBackend{cfg: cfg, factory: factory, logger: logger}
}

func (b *BrowserScreenshotBackend) Name() string   { return "browser-screenshot" }
func (b *BrowserScreenshotBackend) Format() Format { return FormatPNG }

func (b *BrowserScreenshotBackend) Render(ctx context.Context, doc template.TemplateData) (*Result, error) {
	if !b.cfg.BrowserEnabled {
		return nil, ErrBrowserDisabled
	}

	page := doc.PageSettings.Normalized()
	session, err := openRenderedSession(ctx, b.factory, b.logger, doc)
	if err != nil {
		return nil, err
	}
	defer closeSession(session, b.logger)

	data, err := session.ScreenshotElement(ctx, "#"+template.RootContainerID, page.Width, page.Height)
	if err != nil {
		return nil, fmt.Errorf("png generation failed: %w", err)
	}
	return &Result{Data: data, Format: FormatPNG}, nil
}

// openRenderedSession composes the document, opens a session and drives it
// to the ready state. On error the session is already closed; on success the
// caller owns it.
func openRenderedSession(ctx context.Context, factory SessionFactory, logger *slog.Logger, doc template.TemplateData) (BrowserSession, error) {
	html, err := template.Compose(doc)
	if err != nil {
		return nil, err
	}

	session := factory()
	if err := session.Open(ctx); err != nil {
		return nil, err
	}

	if err := session.SetContent(ctx, html); err != nil {
		closeSession(session, logger)
		return nil, err
	}

	if err := session.WaitReady(ctx); err != nil {
		// Asset-load trouble is non-fatal: proceed with whatever loaded.
		logger.Warn("asset wait incomplete, rendering anyway", slog.Any("error", err))
	}

	return session, nil
}
