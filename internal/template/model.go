// Package template holds the certificate document model and the pure
// transformation passes over it: placeholder substitution, style resolution
// and HTML composition. Nothing in this package performs I/O.
package template

// Element types supported by the renderer.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeShape = "shape"
	TypeQR    = "qr"
)

// Page defaults applied when a stored design omits them.
const (
	DefaultPageWidth  = 800
	DefaultPageHeight = 600
	DefaultBackground = "#ffffff"
	DefaultBorderCol  = "#c9a227"
	DefaultBorderPx   = 2
)

// Margin describes the page margins in pixels.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Background describes the page fill and border.
type Background struct {
	Color       string  `json:"color,omitempty"`
	Border      bool    `json:"border,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
}

// PageSettings is the fixed-size canvas of a certificate page. Set once when
// a design is created; immutable during rendering.
type PageSettings struct {
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Margin     Margin     `json:"margin"`
	Background Background `json:"background"`
}

// Position places an element on the page, origin top-left, pixels.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one typed, absolutely-positioned visual element. Elements are
// independent of each other; array order is z-order (later draws on top).
type Element struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Position Position       `json:"position"`
	Style    map[string]any `json:"style,omitempty"`
}

// TemplateData is the full document definition stored per certificate. An
// issued certificate owns its own copy, so edits never reach the shared
// template it was derived from.
type TemplateData struct {
	Elements     []Element    `json:"elements"`
	PageSettings PageSettings `json:"pageSettings"`
}

// CertificateData is the read-only input for one render pass. It is built by
// the caller from persisted certificate and template rows and discarded once
// the artifact is produced.
type CertificateData struct {
	ID                 string
	RecipientFirstName string
	RecipientLastName  string
	RecipientEmail     string
	IssuerName         string
	IssueDate          string
	TemplateData       TemplateData
	QRCodeData         string
	VerificationID     string
}

// RecipientName joins first and last name for display and substitution.
func (c CertificateData) RecipientName() string {
	switch {
	case c.RecipientFirstName == "":
		return c.RecipientLastName
	case c.RecipientLastName == "":
		return c.RecipientFirstName
	default:
		return c.RecipientFirstName + " " + c.RecipientLastName
	}
}

// Normalized returns a copy with page defaults filled in. Width and height
// must be strictly positive; anything else falls back to the default canvas.
func (p PageSettings) Normalized() PageSettings {
	out := p
	if out.Width <= 0 {
		out.Width = DefaultPageWidth
	}
	if out.Height <= 0 {
		out.Height = DefaultPageHeight
	}
	if out.Background.Color == "" {
		out.Background.Color = DefaultBackground
	}
	if out.Background.Border && out.Background.BorderColor == "" {
		out.Background.BorderColor = DefaultBorderCol
	}
	if out.Background.Border && out.Background.BorderWidth <= 0 {
		out.Background.BorderWidth = DefaultBorderPx
	}
	return out
}

// Clone deep-copies the document so render-time substitution never touches
// the stored template.
func (t TemplateData) Clone() TemplateData {
	out := TemplateData{
		Elements:     make([]Element, len(t.Elements)),
		PageSettings: t.PageSettings,
	}
	for i, el := range t.Elements {
		copied := el
		if el.Style != nil {
			copied.Style = make(map[string]any, len(el.Style))
			for k, v := range el.Style {
				copied.Style[k] = v
			}
		}
		out.Elements[i] = copied
	}
	return out
}
