package template

import "testing"

func TestCSSStringSortsAndKebabs(t *testing.T) {
	style := map[string]any{
		"fontSize":        "24px",
		"color":           "#2c3e50",
		"backgroundColor": "#ffffff",
	}
	got := CSSString(style)
	want := "background-color: #ffffff; color: #2c3e50; font-size: 24px;"
	if got != want {
		t.Errorf("CSSString = %q, want %q", got, want)
	}
}

func TestCSSStringDeterministic(t *testing.T) {
	style := map[string]any{
		"fontWeight": "bold",
		"textAlign":  "center",
		"fontSize":   18,
		"color":      "#111111",
	}
	first := CSSString(style)
	for i := 0; i < 20; i++ {
		if got := CSSString(style); got != first {
			t.Fatalf("output varies across calls: %q vs %q", first, got)
		}
	}
}

func TestCSSStringSkipsEmptyValues(t *testing.T) {
	style := map[string]any{
		"color":    "",
		"fontSize": nil,
		"padding":  "4px",
	}
	if got := CSSString(style); got != "padding: 4px;" {
		t.Errorf("got %q", got)
	}
}

func TestExtractNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"14px", 14},
		{"14", 14},
		{14, 14},
		{14.5, 14.5},
		{"16pt", 16},
		{" 18px ", 18},
		{"garbage", 14},
		{nil, 14},
		{map[string]any{}, 14},
	}
	for _, tc := range cases {
		if got := ExtractNumber(tc.in, 14); got != tc.want {
			t.Errorf("ExtractNumber(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want RGB
		ok   bool
	}{
		{"#2c3e50", RGB{0x2c, 0x3e, 0x50}, true},
		{"#fff", RGB{255, 255, 255}, true},
		{"#000000", RGB{0, 0, 0}, true},
		{" #ff0000 ", RGB{255, 0, 0}, true},
		{"red", RGB{}, false},
		{"#12345", RGB{}, false},
		{"#zzzzzz", RGB{}, false},
		{"", RGB{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseHexColor(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseHexColor(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolvePDFText(t *testing.T) {
	style := map[string]any{
		"fontSize":        "28px",
		"fontWeight":      "bold",
		"textAlign":       "center",
		"color":           "#1a1a2e",
		"backgroundColor": "#fdfbf7",
	}
	got := ResolvePDFText(style)
	if got.FontSize != 28 {
		t.Errorf("FontSize = %v", got.FontSize)
	}
	if !got.Bold {
		t.Error("Bold = false, want true")
	}
	if got.Align != "C" {
		t.Errorf("Align = %q", got.Align)
	}
	if !got.HasColor || got.Color != (RGB{0x1a, 0x1a, 0x2e}) {
		t.Errorf("Color = %v, HasColor = %v", got.Color, got.HasColor)
	}
	if !got.HasFill {
		t.Error("HasFill = false, want true")
	}
}

func TestResolvePDFTextNumericWeight(t *testing.T) {
	if got := ResolvePDFText(map[string]any{"fontWeight": "700"}); !got.Bold {
		t.Error("weight 700 should be bold")
	}
	if got := ResolvePDFText(map[string]any{"fontWeight": "400"}); got.Bold {
		t.Error("weight 400 should not be bold")
	}
}

func TestResolvePDFTextDefaults(t *testing.T) {
	got := ResolvePDFText(map[string]any{})
	if got.FontSize != DefaultFontSize {
		t.Errorf("FontSize = %v, want %v", got.FontSize, DefaultFontSize)
	}
	if got.Align != "L" {
		t.Errorf("Align = %q, want L", got.Align)
	}
	if got.HasColor || got.HasFill {
		t.Error("no color styles given, expected HasColor and HasFill false")
	}
}
