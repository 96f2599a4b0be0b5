package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"

	"certforge/internal/template"
)

// ptPerPx converts CSS pixels to PDF points (96 DPI, 72 pt/in). Applied to
// every coordinate, size and font metric in this backend.
const ptPerPx = 0.75

// Font metric approximations for the core fonts. Chromium lays text out with
// real metrics; this backend gets close enough for the fallback path.
const (
	fontAscentRatio = 0.8
	lineHeightRatio = 1.2
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
var htmlBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)

// DirectPDFBackend draws the document straight onto a vector PDF canvas
// without a browser. It trades HTML/CSS layout fidelity for independence
// from a browser runtime.
type DirectPDFBackend struct {
	logger       *slog.Logger
	assetTimeout time.Duration
}

// NewDirectPDFBackend constructs the browser-free PDF backend.
func NewDirectPDFBackend(assetTimeout time.Duration, logger *slog.Logger) *DirectPDFBackend {
	return &DirectPDFBackend{logger: logger, assetTimeout: assetTimeout}
}

func (b *DirectPDFBackend) Name() string   { return "direct-draw" }
func (b *DirectPDFBackend) Format() Format { return FormatPDF }

func (b *DirectPDFBackend) Render(ctx context.Context, doc template.TemplateData) (*Result, error) {
	page := doc.PageSettings.Normalized()
	widthPt := page.Width * ptPerPx
	heightPt := page.Height * ptPerPx

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: widthPt, Ht: heightPt},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Core fonts are cp1252; the translator maps UTF-8 input (accented
	// names and the like) onto that codepage instead of garbling it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	b.drawPageBackground(pdf, page, widthPt, heightPt)

	// Array order is z-order: later elements draw on top.
	for i, el := range doc.Elements {
		switch el.Type {
		case template.TypeText:
			b.drawText(pdf, tr, el)
		case template.TypeShape:
			b.drawShape(pdf, el)
		case template.TypeImage, template.TypeQR:
			b.drawImage(ctx, pdf, el, i)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Result{Data: buf.Bytes(), Format: FormatPDF}, nil
}

func (b *DirectPDFBackend) drawPageBackground(pdf *gofpdf.Fpdf, page template.PageSettings, widthPt, heightPt float64) {
	if rgb, ok := template.ParseHexColor(page.Background.Color); ok {
		pdf.SetFillColor(rgb.R, rgb.G, rgb.B)
		pdf.Rect(0, 0, widthPt, heightPt, "F")
	}
	if page.Background.Border {
		borderPt := page.Background.BorderWidth * ptPerPx
		if rgb, ok := template.ParseHexColor(page.Background.BorderColor); ok {
			pdf.SetDrawColor(rgb.R, rgb.G, rgb.B)
		}
		pdf.SetLineWidth(borderPt)
		inset := borderPt / 2
		pdf.Rect(inset, inset, widthPt-borderPt, heightPt-borderPt, "D")
	}
}

func (b *DirectPDFBackend) drawText(pdf *gofpdf.Fpdf, tr func(string) string, el template.Element) {
	text := tr(stripMarkup(el.Content))
	if strings.TrimSpace(text) == "" {
		return
	}

	style := template.ResolvePDFText(el.Style)
	sizePt := style.FontSize * ptPerPx
	fontStyle := ""
	if style.Bold {
		fontStyle = "B"
	}
	pdf.SetFont("Helvetica", fontStyle, sizePt)
	if style.HasColor {
		pdf.SetTextColor(style.Color.R, style.Color.G, style.Color.B)
	} else {
		pdf.SetTextColor(0, 0, 0)
	}

	if style.HasFill {
		pdf.SetFillColor(style.Fill.R, style.Fill.G, style.Fill.B)
		pdf.Rect(el.Position.X*ptPerPx, el.Position.Y*ptPerPx,
			el.Position.Width*ptPerPx, el.Position.Height*ptPerPx, "F")
	}

	boxX := el.Position.X * ptPerPx
	boxW := el.Position.Width * ptPerPx
	lineHt := sizePt * lineHeightRatio
	// First baseline sits near the top of the box, offset by the ascent.
	baseline := el.Position.Y*ptPerPx + sizePt*fontAscentRatio

	for _, line := range pdf.SplitText(text, boxW) {
		x := boxX
		switch style.Align {
		case "C":
			x = boxX + (boxW-pdf.GetStringWidth(line))/2
		case "R":
			x = boxX + boxW - pdf.GetStringWidth(line)
		}
		pdf.Text(x, baseline, line)
		baseline += lineHt
	}
}

func (b *DirectPDFBackend) drawShape(pdf *gofpdf.Fpdf, el template.Element) {
	style := template.ResolvePDFText(el.Style)
	if !style.HasFill {
		return
	}
	pdf.SetFillColor(style.Fill.R, style.Fill.G, style.Fill.B)
	pdf.Rect(el.Position.X*ptPerPx, el.Position.Y*ptPerPx,
		el.Position.Width*ptPerPx, el.Position.Height*ptPerPx, "F")
}

func (b *DirectPDFBackend) drawImage(ctx context.Context, pdf *gofpdf.Fpdf, el template.Element, index int) {
	raw, imageType, err := b.loadImage(ctx, el.Content)
	if err != nil {
		b.logger.Warn("direct-draw image unavailable, drawing placeholder",
			slog.String("element_id", el.ID),
			slog.Any("error", err),
		)
		b.drawImagePlaceholder(pdf, el)
		return
	}

	x := el.Position.X * ptPerPx
	y := el.Position.Y * ptPerPx
	w := el.Position.Width * ptPerPx
	h := el.Position.Height * ptPerPx

	// Contain scaling: preserve aspect ratio, center in the box, no crop.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		scale := min(w/float64(cfg.Width), h/float64(cfg.Height))
		fitW := float64(cfg.Width) * scale
		fitH := float64(cfg.Height) * scale
		x += (w - fitW) / 2
		y += (h - fitH) / 2
		w, h = fitW, fitH
	}

	name := fmt.Sprintf("element-%d-%s", index, el.ID)
	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func (b *DirectPDFBackend) drawImagePlaceholder(pdf *gofpdf.Fpdf, el template.Element) {
	x := el.Position.X * ptPerPx
	y := el.Position.Y * ptPerPx
	w := el.Position.Width * ptPerPx
	h := el.Position.Height * ptPerPx
	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(153, 153, 153)
	pdf.SetLineWidth(0.75)
	pdf.Rect(x, y, w, h, "FD")
}

// loadImage resolves an element image source (base64 data URI or http URL)
// into raw bytes plus the gofpdf image type.
func (b *DirectPDFBackend) loadImage(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, "", fmt.Errorf("empty image source")
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return b.fetchImage(ctx, src)
	default:
		return nil, "", fmt.Errorf("unsupported image source %q", truncate(src, 40))
	}
}

func decodeDataURI(src string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(src, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("unsupported data uri encoding")
	}

	var imageType string
	switch {
	case strings.Contains(meta, "image/png"):
		imageType = "PNG"
	case strings.Contains(meta, "image/jpeg"), strings.Contains(meta, "image/jpg"):
		imageType = "JPEG"
	default:
		return nil, "", fmt.Errorf("unsupported data uri media type")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return raw, imageType, nil
}

func (b *DirectPDFBackend) fetchImage(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}

	client := &http.Client{Timeout: b.assetTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}

	switch resp.Header.Get("Content-Type") {
	case "image/png":
		return raw, "PNG", nil
	case "image/jpeg", "image/jpg":
		return raw, "JPEG", nil
	}
	// Sniff by signature when the server is vague about the type.
	if bytes.HasPrefix(raw, pngSignature) {
		return raw, "PNG", nil
	}
	if bytes.HasPrefix(raw, []byte{0xff, 0xd8}) {
		return raw, "JPEG", nil
	}
	return nil, "", fmt.Errorf("unsupported remote image type")
}

// stripMarkup flattens rich markup to plain text: this backend cannot render
// HTML. Block-level closers become newlines so paragraphs survive.
func stripMarkup(s string) string {
	s = htmlBreakPattern.ReplaceAllString(s, "\n")
	s = htmlTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
