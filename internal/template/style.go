package template

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// DefaultFontSize is used when a style carries no parsable fontSize.
const DefaultFontSize = 14.0

// CSSString flattens an element style map into a CSS declaration string for
// the DOM-based backends. Keys are emitted in sorted order so identical
// inputs always produce byte-identical output; camelCase keys are converted
// to kebab-case and unknown keys pass through verbatim.
func CSSString(style map[string]any) string {
	if len(style) == 0 {
		return ""
	}
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := style[k]
		if v == nil {
			continue
		}
		value := strings.TrimSpace(fmt.Sprint(v))
		if value == "" {
			continue
		}
		b.WriteString(camelToKebab(k))
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("; ")
	}
	return strings.TrimSpace(b.String())
}

func camelToKebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RGB is a parsed color triple for the direct-draw backend.
type RGB struct {
	R, G, B int
}

// PDFTextStyle is the style subset the direct-draw PDF backend interprets.
// Everything else in the style map is ignored by that backend.
type PDFTextStyle struct {
	FontSize float64
	Bold     bool
	Align    string // "L", "C" or "R"
	Color    RGB
	HasColor bool
	Fill     RGB
	HasFill  bool
}

// ResolvePDFText extracts the direct-draw subset from an element style map.
// Values are parsed defensively; anything malformed degrades to a documented
// default and is logged, never an error.
func ResolvePDFText(style map[string]any) PDFTextStyle {
	out := PDFTextStyle{
		FontSize: ExtractNumber(style["fontSize"], DefaultFontSize),
		Align:    "L",
	}

	if weight := strings.TrimSpace(fmt.Sprint(style["fontWeight"])); weight != "" && style["fontWeight"] != nil {
		if weight == "bold" || weight == "bolder" {
			out.Bold = true
		} else if n, err := strconv.Atoi(weight); err == nil && n >= 600 {
			out.Bold = true
		}
	}

	switch fmt.Sprint(style["textAlign"]) {
	case "center":
		out.Align = "C"
	case "right":
		out.Align = "R"
	}

	if rgb, ok := ParseHexColor(stringValue(style["color"])); ok {
		out.Color = rgb
		out.HasColor = true
	}
	if rgb, ok := ParseHexColor(stringValue(style["backgroundColor"])); ok {
		out.Fill = rgb
		out.HasFill = true
	}

	return out
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ExtractNumber pulls a numeric value out of a style entry that may arrive
// as a number, a bare numeric string, or a CSS length like "14px". Unparsable
// input falls back to def; the fallback is logged because a silently wrong
// font size is a real bug class here.
func ExtractNumber(v any, def float64) float64 {
	switch n := v.(type) {
	case nil:
		return def
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}

	s := strings.TrimSpace(fmt.Sprint(v))
	s = strings.TrimSuffix(s, "px")
	s = strings.TrimSuffix(s, "pt")
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	slog.Warn("style number unparsable, using default",
		slog.Any("value", v),
		slog.Float64("default", def),
	)
	return def
}

// ParseHexColor converts "#rrggbb" (or "#rgb") into an RGB triple. Invalid
// input reports ok=false, which callers treat as "no color change".
func ParseHexColor(s string) (RGB, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return RGB{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{
		R: int(n >> 16 & 0xff),
		G: int(n >> 8 & 0xff),
		B: int(n & 0xff),
	}, true
}
