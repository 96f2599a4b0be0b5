package template

import (
	"net/url"
	"regexp"
	"strings"
)

// Values is the resolved value set substituted into element content for one
// render pass.
type Values struct {
	RecipientName   string
	IssuerName      string
	IssueDate       string
	CertificateID   string
	QRCodeSource    string
	VerificationURL string
}

// QRPlaceholderDataURI is the built-in neutral "QR Code" graphic substituted
// when no QR image source is available. Rendering must never fail solely
// because the QR image could not be generated.
const QRPlaceholderDataURI = "data:image/svg+xml;charset=utf-8," +
	"%3Csvg%20xmlns%3D%22http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%22%20width%3D%22120%22%20height%3D%22120%22%3E" +
	"%3Crect%20width%3D%22120%22%20height%3D%22120%22%20fill%3D%22%23f0f0f0%22%20stroke%3D%22%23999999%22%2F%3E" +
	"%3Ctext%20x%3D%2260%22%20y%3D%2265%22%20font-family%3D%22sans-serif%22%20font-size%3D%2214%22%20fill%3D%22%23666666%22%20text-anchor%3D%22middle%22%3EQR%20Code%3C%2Ftext%3E" +
	"%3C%2Fsvg%3E"

// qrSource returns the QR image source, falling back to the placeholder
// graphic so a qr token is never left unresolved.
func (v Values) qrSource() string {
	if strings.TrimSpace(v.QRCodeSource) == "" {
		return QRPlaceholderDataURI
	}
	return v.QRCodeSource
}

// ValuesFor builds the substitution value set for a certificate. qrSource is
// the already-generated QR image source (may be empty) and publicBaseURL
// anchors the verification link.
func ValuesFor(cert CertificateData, qrSource, publicBaseURL string) Values {
	verificationURL := ""
	if cert.VerificationID != "" {
		verificationURL = strings.TrimRight(publicBaseURL, "/") + "/verify/" + url.PathEscape(cert.VerificationID)
	}
	return Values{
		RecipientName:   cert.RecipientName(),
		IssuerName:      cert.IssuerName,
		IssueDate:       cert.IssueDate,
		CertificateID:   cert.ID,
		QRCodeSource:    qrSource,
		VerificationURL: verificationURL,
	}
}

// rule is one (matcher, resolver) pair of the substitution chain. Rules are
// evaluated exactly once, in order, so a full pass over already-substituted
// content is a no-op.
type rule struct {
	pattern *regexp.Regexp
	resolve func(Values) string
	// legacy marks the sample-value back-compat matchers used by designs
	// authored against design-time preview data. Candidates for removal
	// once no stored template depends on them.
	legacy bool
}

var substitutionRules = []rule{
	// Double-brace tokens.
	{pattern: regexp.MustCompile(`\{\{\s*recipientName\s*\}\}`), resolve: func(v Values) string { return v.RecipientName }},
	{pattern: regexp.MustCompile(`\{\{\s*issuerName\s*\}\}`), resolve: func(v Values) string { return v.IssuerName }},
	{pattern: regexp.MustCompile(`\{\{\s*issueDate\s*\}\}`), resolve: func(v Values) string { return v.IssueDate }},
	{pattern: regexp.MustCompile(`\{\{\s*certificateId\s*\}\}`), resolve: func(v Values) string { return v.CertificateID }},
	{pattern: regexp.MustCompile(`\{\{\s*qrCode\s*\}\}`), resolve: func(v Values) string { return v.qrSource() }},
	{pattern: regexp.MustCompile(`\{\{\s*verificationUrl\s*\}\}`), resolve: func(v Values) string { return v.VerificationURL }},

	// Single-brace named tokens.
	{pattern: regexp.MustCompile(`\{recipientName\}`), resolve: func(v Values) string { return v.RecipientName }},
	{pattern: regexp.MustCompile(`\{issuerName\}`), resolve: func(v Values) string { return v.IssuerName }},
	{pattern: regexp.MustCompile(`\{issueDate\}`), resolve: func(v Values) string { return v.IssueDate }},
	{pattern: regexp.MustCompile(`\{certificateId\}`), resolve: func(v Values) string { return v.CertificateID }},
	{pattern: regexp.MustCompile(`\{qrCode\}`), resolve: func(v Values) string { return v.qrSource() }},

	// Legacy sample values from the design-time preview, replaced so designs
	// authored against sample data render correctly once issued.
	{pattern: regexp.MustCompile(regexp.QuoteMeta("Sample Recipient")), resolve: func(v Values) string { return v.RecipientName }, legacy: true},
	{pattern: regexp.MustCompile(regexp.QuoteMeta("Sample Organization")), resolve: func(v Values) string { return v.IssuerName }, legacy: true},
	{pattern: regexp.MustCompile(regexp.QuoteMeta("January 1, 2025")), resolve: func(v Values) string { return v.IssueDate }, legacy: true},
	{pattern: regexp.MustCompile(`FOM-\d{4}-[A-Z]{3}-\d{4}`), resolve: func(v Values) string { return v.CertificateID }, legacy: true},
}

// Generic catch-alls: an unknown token-like interior degrades to its own
// inner text instead of surfacing literal braces. The double-brace form runs
// first so `{{unknown}}` collapses straight to `unknown` in one pass rather
// than shedding one brace pair per pass. Restricted to whitespace-free
// interiors so ordinary prose containing braces is left alone.
var genericDoubleBracePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_-]+)\s*\}\}`)
var genericBracePattern = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// Residual empty brace pairs left over after substitution.
var emptyBracePattern = regexp.MustCompile(`\{\{\s*\}\}|\{\s*\}`)

// Substitute replaces every recognized placeholder token in content with its
// value. The pass is idempotent: tokens are consumed, so a second run over
// already-substituted content is a no-op.
func Substitute(content string, v Values) string {
	out := content
	for _, r := range substitutionRules {
		value := r.resolve(v)
		out = r.pattern.ReplaceAllLiteralString(out, value)
	}
	out = genericDoubleBracePattern.ReplaceAllString(out, "$1")
	out = genericBracePattern.ReplaceAllString(out, "$1")
	out = emptyBracePattern.ReplaceAllString(out, "")
	return out
}

// ResolveElements runs substitution over a deep copy of the document and
// resolves image/qr element sources. The input document is never mutated.
func ResolveElements(doc TemplateData, v Values) TemplateData {
	out := doc.Clone()
	for i := range out.Elements {
		el := &out.Elements[i]
		switch el.Type {
		case TypeText:
			el.Content = Substitute(el.Content, v)
		case TypeImage:
			el.Content = resolveImageSource(el.Content, v)
		case TypeQR:
			el.Content = resolveQRSource(el.Content, v)
		}
	}
	return out
}

func resolveImageSource(content string, v Values) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return v.qrSource()
	}
	// An image source may itself be a placeholder token (e.g. the QR token).
	return Substitute(trimmed, v)
}

func resolveQRSource(content string, v Values) string {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return v.qrSource()
	case strings.Contains(trimmed, "{"):
		return Substitute(trimmed, v)
	default:
		// Already a concrete URL or data URI.
		return trimmed
	}
}
