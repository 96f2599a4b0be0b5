package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"certforge/internal/template"
)

func directBackend() *DirectPDFBackend {
	return NewDirectPDFBackend(2*time.Second, discardLogger)
}

func TestDirectPDFRendersSignature(t *testing.T) {
	doc := template.TemplateData{
		PageSettings: template.PageSettings{Width: 800, Height: 600},
		Elements: []template.Element{
			{
				ID:       "title",
				Type:     template.TypeText,
				Content:  "Certificate of Completion",
				Position: template.Position{X: 100, Y: 80, Width: 600, Height: 60},
				Style:    map[string]any{"fontSize": "36px", "fontWeight": "bold", "textAlign": "center"},
			},
		},
	}

	result, err := directBackend().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Format != FormatPDF {
		t.Errorf("format = %q", result.Format)
	}
	if !bytes.HasPrefix(result.Data, []byte("%PDF")) {
		t.Fatal("output missing pdf signature")
	}
}

func TestDirectPDFHandlesMarkupAndShapes(t *testing.T) {
	doc := template.TemplateData{
		PageSettings: template.PageSettings{
			Width:  800,
			Height: 600,
			Background: template.Background{
				Color:       "#fdfbf7",
				Border:      true,
				BorderColor: "#b08d57",
				BorderWidth: 3,
			},
		},
		Elements: []template.Element{
			{
				ID:       "body",
				Type:     template.TypeText,
				Content:  "Line one<br>Line &amp; two</p>",
				Position: template.Position{X: 50, Y: 100, Width: 700, Height: 80},
			},
			{
				ID:       "rule",
				Type:     template.TypeShape,
				Position: template.Position{X: 100, Y: 300, Width: 600, Height: 2},
				Style:    map[string]any{"backgroundColor": "#b08d57"},
			},
		},
	}

	result, err := directBackend().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(result.Data) == 0 {
		t.Fatal("empty output")
	}
}

func TestDirectPDFEmbedsDataURIImage(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.Black)
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	doc := template.TemplateData{
		PageSettings: template.PageSettings{Width: 800, Height: 600},
		Elements: []template.Element{
			{
				ID:       "photo",
				Type:     template.TypeImage,
				Content:  src,
				Position: template.Position{X: 650, Y: 450, Width: 100, Height: 100},
			},
		},
	}

	result, err := directBackend().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(result.Data, []byte("%PDF")) {
		t.Fatal("output missing pdf signature")
	}
}

func TestDirectPDFSurvivesBrokenImage(t *testing.T) {
	// An unreadable image source degrades to a placeholder box, never an
	// error.
	doc := template.TemplateData{
		PageSettings: template.PageSettings{Width: 800, Height: 600},
		Elements: []template.Element{
			{
				ID:       "broken",
				Type:     template.TypeImage,
				Content:  "data:image/png;base64,!!!not-base64!!!",
				Position: template.Position{X: 10, Y: 10, Width: 50, Height: 50},
			},
			{
				ID:       "svg-placeholder",
				Type:     template.TypeQR,
				Content:  template.QRPlaceholderDataURI,
				Position: template.Position{X: 100, Y: 10, Width: 50, Height: 50},
			},
		},
	}

	result, err := directBackend().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(result.Data, []byte("%PDF")) {
		t.Fatal("output missing pdf signature")
	}
}

func TestDirectPDFRendersAccentedText(t *testing.T) {
	doc := template.TemplateData{
		PageSettings: template.PageSettings{Width: 800, Height: 600},
		Elements: []template.Element{
			{
				ID:       "recipient",
				Type:     template.TypeText,
				Content:  "José Núñez-Ibáñez",
				Position: template.Position{X: 100, Y: 200, Width: 600, Height: 60},
				Style:    map[string]any{"fontSize": "28px", "textAlign": "center"},
			},
			{
				ID:       "issuer",
				Type:     template.TypeText,
				Content:  "Académie Française · Curaçao",
				Position: template.Position{X: 100, Y: 320, Width: 600, Height: 40},
			},
		},
	}

	result, err := directBackend().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(result.Data, []byte("%PDF")) {
		t.Fatal("output missing pdf signature")
	}
	if bytes.Contains(result.Data, []byte("José")) {
		t.Error("accented text embedded as raw utf-8 instead of the core-font codepage")
	}
}

func TestStripMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a<br>b", "a\nb"},
		{"a<br />b", "a\nb"},
		{"<p>para</p>rest", "para\nrest"},
		{"<strong>bold</strong>", "bold"},
		{"x &amp; y", "x & y"},
	}
	for _, tc := range cases {
		if got := stripMarkup(tc.in); got != tc.want {
			t.Errorf("stripMarkup(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQRDataURI(t *testing.T) {
	src, err := QRDataURI("https://certs.example.com/verify/abc-123")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %.40s", src)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(src, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !bytes.HasPrefix(raw, pngSignature) {
		t.Fatal("qr payload is not a png")
	}
}

func TestQRSourceForFallsBackToVerificationURL(t *testing.T) {
	if src := qrSourceFor(discardLogger, "", "https://certs.example.com/verify/x"); src == "" {
		t.Fatal("expected generated qr source")
	}
	if src := qrSourceFor(discardLogger, "", ""); src != "" {
		t.Fatalf("expected empty source, got %.40s", src)
	}
}
