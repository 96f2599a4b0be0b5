package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"certforge/internal/config"
)

// ErrBrowserDisabled is returned before any launch attempt when the
// environment has no usable browser runtime.
var ErrBrowserDisabled = errors.New("browser rendering is disabled by configuration")

// ErrPDFPrintDisabled is returned when the browser-print PDF path is
// switched off while the browser itself remains usable for screenshots.
var ErrPDFPrintDisabled = errors.New("pdf generation is disabled by configuration")

// cssPixelsPerInch is the CSS reference density used to convert page pixel
// dimensions into the print engine's paper size.
const cssPixelsPerInch = 96.0

// viewportMargin pads the screenshot viewport past the page bounds so the
// container border is never clipped. The capture itself is element-scoped,
// so this never leaks into output dimensions.
const viewportMargin = 50

// BrowserSession is one headless browser page: open, load content, wait for
// assets, export, close. The concrete implementation drives Chromium via
// go-rod; tests substitute a fake so backends run without spawning
// processes. Close must be called on every exit path once Open succeeded.
type BrowserSession interface {
	Open(ctx context.Context) error
	SetContent(ctx context.Context, html string) error
	// WaitReady blocks until web fonts and every embedded image finished
	// loading or timed out. A non-nil error is advisory: rendering proceeds
	// with whatever loaded.
	WaitReady(ctx context.Context) error
	PrintPDF(ctx context.Context, widthPx, heightPx float64) ([]byte, error)
	ScreenshotElement(ctx context.Context, selector string, widthPx, heightPx float64) ([]byte, error)
	Close() error
}

// SessionFactory creates a fresh session per render request.
type SessionFactory func() BrowserSession

// NewRodSessionFactory returns a factory producing real Chromium sessions
// configured from cfg.
func NewRodSessionFactory(cfg config.RenderConfig, logger *slog.Logger) SessionFactory {
	return func() BrowserSession {
		return &rodSession{cfg: cfg, logger: logger}
	}
}

type rodSession struct {
	cfg     config.RenderConfig
	logger  *slog.Logger
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

func (s *rodSession) Open(ctx context.Context) (err error) {
	if !s.cfg.BrowserEnabled {
		return ErrBrowserDisabled
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if s.cfg.BrowserBin != "" {
		launch = launch.Bin(s.cfg.BrowserBin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Timeout(s.cfg.NavigationTimeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}

	s.launch = launch
	s.browser = browser
	s.page = page
	return nil
}

func (s *rodSession) SetContent(ctx context.Context, html string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (s *rodSession) WaitReady(ctx context.Context) error {
	// Bounded per-asset wait: one broken image (a dead QR URL, say) must not
	// stall the render past the asset timeout.
	script := fmt.Sprintf(`() => {
	  const perAssetMs = %d;
	  const settle = (p) => Promise.race([
	    p.then(() => true),
	    new Promise((resolve) => setTimeout(() => resolve(true), perAssetMs))
	  ]);
	  const waits = [];
	  if (document.fonts && document.fonts.ready) {
	    waits.push(settle(document.fonts.ready));
	  }
	  for (const img of Array.from(document.images)) {
	    if (img.complete) continue;
	    waits.push(settle(new Promise((resolve) => {
	      img.addEventListener('load', resolve);
	      img.addEventListener('error', resolve);
	    })));
	  }
	  return Promise.all(waits).then(() => true);
	}`, s.cfg.AssetTimeout.Milliseconds())

	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	if _, err := page.Eval(script); err != nil {
		return fmt.Errorf("wait for assets: %w", err)
	}
	return nil
}

func (s *rodSession) PrintPDF(ctx context.Context, widthPx, heightPx float64) ([]byte, error) {
	// Exact page pixel dimensions, zero margins, scale 1: never shrink the
	// page to a default paper size or QR codes lose scanability.
	params := &proto.PagePrintToPDF{
		PrintBackground: true,
		Scale:           float64Ptr(1),
		PaperWidth:      float64Ptr(widthPx / cssPixelsPerInch),
		PaperHeight:     float64Ptr(heightPx / cssPixelsPerInch),
		MarginTop:       float64Ptr(0),
		MarginBottom:    float64Ptr(0),
		MarginLeft:      float64Ptr(0),
		MarginRight:     float64Ptr(0),
	}

	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	reader, err := page.PDF(params)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func (s *rodSession) ScreenshotElement(ctx context.Context, selector string, widthPx, heightPx float64) ([]byte, error) {
	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)

	viewport := proto.EmulationSetDeviceMetricsOverride{
		Width:             int(widthPx) + viewportMargin,
		Height:            int(heightPx) + viewportMargin,
		DeviceScaleFactor: s.cfg.DeviceScaleFactor,
		Mobile:            false,
	}
	if err := viewport.Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	element, err := page.Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find element %q: %w", selector, err)
	}

	data, err := element.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("element screenshot: %w", err)
	}
	return data, nil
}

func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.browser = nil
	}
	if s.launch != nil {
		s.launch.Cleanup()
		s.launch = nil
	}
	return errors.Join(errs...)
}

// closeSession releases a session, logging (and swallowing) close errors so
// they never mask the primary result.
func closeSession(s BrowserSession, logger *slog.Logger) {
	if err := s.Close(); err != nil {
		logger.Warn("close browser session failed", slog.Any("error", err))
	}
}

func float64Ptr(value float64) *float64 {
	return &value
}
