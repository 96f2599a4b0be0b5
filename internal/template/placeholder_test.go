package template

import (
	"strings"
	"testing"
)

func testValues() Values {
	return Values{
		RecipientName:   "Maria Santos",
		IssuerName:      "Freedom Online Academy",
		IssueDate:       "March 15, 2026",
		CertificateID:   "CERT-2026-0042",
		QRCodeSource:    "data:image/png;base64,QUJD",
		VerificationURL: "https://certs.example.com/verify/abc-123",
	}
}

func TestSubstituteDoubleBraceTokens(t *testing.T) {
	v := testValues()
	cases := []struct {
		in   string
		want string
	}{
		{"{{recipientName}}", "Maria Santos"},
		{"{{ recipientName }}", "Maria Santos"},
		{"{{issuerName}}", "Freedom Online Academy"},
		{"{{issueDate}}", "March 15, 2026"},
		{"Certificate ID: {{certificateId}}", "Certificate ID: CERT-2026-0042"},
		{"{{verificationUrl}}", "https://certs.example.com/verify/abc-123"},
	}
	for _, tc := range cases {
		if got := Substitute(tc.in, v); got != tc.want {
			t.Errorf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSubstituteSingleBraceTokens(t *testing.T) {
	v := testValues()
	got := Substitute("Awarded to {recipientName} by {issuerName} on {issueDate}", v)
	want := "Awarded to Maria Santos by Freedom Online Academy on March 15, 2026"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubstituteLegacySampleValues(t *testing.T) {
	v := testValues()
	cases := []struct {
		in   string
		want string
	}{
		{"Sample Recipient", "Maria Santos"},
		{"Sample Organization", "Freedom Online Academy"},
		{"January 1, 2025", "March 15, 2026"},
		{"FOM-2025-ABC-0001", "CERT-2026-0042"},
	}
	for _, tc := range cases {
		if got := Substitute(tc.in, v); got != tc.want {
			t.Errorf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSubstituteUnknownTokenDegradesToInnerText(t *testing.T) {
	v := testValues()
	if got := Substitute("Hello {courseName}!", v); got != "Hello courseName!" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteUnknownDoubleBraceToken(t *testing.T) {
	// An unknown double-brace token collapses to its inner text in a single
	// pass; it must never surface as `{courseName}` with a second pass
	// producing something different.
	v := testValues()
	in := "Completed {{courseName}} with honors"
	first := Substitute(in, v)
	if first != "Completed courseName with honors" {
		t.Fatalf("first pass = %q, want inner text", first)
	}
	if second := Substitute(first, v); second != first {
		t.Errorf("second pass changed output: %q -> %q", first, second)
	}
}

func TestSubstituteLeavesProseBracesAlone(t *testing.T) {
	v := testValues()
	in := "set {a, b, c} is finite"
	if got := Substitute(in, v); got != in {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestSubstituteRemovesEmptyBraces(t *testing.T) {
	v := testValues()
	if got := Substitute("before {} after {{ }} end", v); got != "before  after  end" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteIsIdempotent(t *testing.T) {
	v := testValues()
	in := "Awarded to {{recipientName}} on {{issueDate}}, ID {certificateId}"
	first := Substitute(in, v)
	second := Substitute(first, v)
	if first != second {
		t.Errorf("second pass changed output: %q -> %q", first, second)
	}
}

func TestQRFallbackNeverLeavesToken(t *testing.T) {
	v := testValues()
	v.QRCodeSource = ""
	got := Substitute("{{qrCode}}", v)
	if strings.Contains(got, "{") || strings.Contains(got, "}") {
		t.Fatalf("token leaked through: %q", got)
	}
	if got != QRPlaceholderDataURI {
		t.Errorf("got %q, want placeholder data URI", got)
	}
}

func TestValuesForBuildsVerificationURL(t *testing.T) {
	cert := CertificateData{
		ID:                 "CERT-1",
		RecipientFirstName: "Maria",
		RecipientLastName:  "Santos",
		IssuerName:         "Academy",
		IssueDate:          "March 15, 2026",
		VerificationID:     "abc 123",
	}
	v := ValuesFor(cert, "", "https://certs.example.com/")
	if v.VerificationURL != "https://certs.example.com/verify/abc%20123" {
		t.Errorf("VerificationURL = %q", v.VerificationURL)
	}
	if v.RecipientName != "Maria Santos" {
		t.Errorf("RecipientName = %q", v.RecipientName)
	}
}

func TestValuesForWithoutVerificationID(t *testing.T) {
	v := ValuesFor(CertificateData{ID: "CERT-1"}, "", "https://certs.example.com")
	if v.VerificationURL != "" {
		t.Errorf("VerificationURL = %q, want empty", v.VerificationURL)
	}
}

func TestResolveElementsDoesNotMutateInput(t *testing.T) {
	doc := TemplateData{
		Elements: []Element{
			{ID: "e1", Type: TypeText, Content: "{{recipientName}}"},
			{ID: "e2", Type: TypeQR, Content: ""},
		},
	}
	out := ResolveElements(doc, testValues())

	if doc.Elements[0].Content != "{{recipientName}}" {
		t.Fatalf("input document was mutated: %q", doc.Elements[0].Content)
	}
	if out.Elements[0].Content != "Maria Santos" {
		t.Errorf("text element = %q", out.Elements[0].Content)
	}
	if out.Elements[1].Content != testValues().QRCodeSource {
		t.Errorf("qr element = %q", out.Elements[1].Content)
	}
}

func TestResolveElementsQRContent(t *testing.T) {
	v := testValues()
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty falls back to generated source", "", v.QRCodeSource},
		{"token resolves", "{{qrCode}}", v.QRCodeSource},
		{"concrete uri kept", "data:image/png;base64,ZZZ", "data:image/png;base64,ZZZ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := TemplateData{Elements: []Element{{ID: "qr", Type: TypeQR, Content: tc.content}}}
			out := ResolveElements(doc, v)
			if got := out.Elements[0].Content; got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRecipientName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Maria", "Santos", "Maria Santos"},
		{"Maria", "", "Maria"},
		{"", "Santos", "Santos"},
		{"", "", ""},
	}
	for _, tc := range cases {
		c := CertificateData{RecipientFirstName: tc.first, RecipientLastName: tc.last}
		if got := c.RecipientName(); got != tc.want {
			t.Errorf("RecipientName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
