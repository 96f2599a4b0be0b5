package template

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
)

// RootContainerID is the id of the fixed-size page container. The browser
// backends locate it for element-scoped screenshots and print sizing.
const RootContainerID = "certificate-root"

// documentTemplate is the single self-contained HTML document shared by the
// live preview and both browser-driven export backends. It embeds no
// timestamps or generated ids, so identical inputs produce byte-identical
// output.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
html, body {
  margin: 0;
  padding: 0;
  background: white;
}
@page {
  size: {{.Page.Width}}px {{.Page.Height}}px;
  margin: 0;
}
#certificate-root {
  position: relative;
  overflow: hidden;
  box-sizing: border-box;
}
#certificate-root img {
  width: 100%;
  height: 100%;
  object-fit: contain;
}
</style>
</head>
<body>
<div id="certificate-root" style="{{.RootStyle | safeCSS}}">
{{- range .Elements}}
<div data-element-id="{{.ID}}" style="{{.WrapperStyle | safeCSS}}">
{{- if eq .Kind "text"}}{{.Content | safeHTML}}{{end}}
{{- if eq .Kind "image"}}<img src="{{.Source | safeURL}}" alt="">{{end}}</div>
{{- end}}
</div>
</body>
</html>
`

var compiledDocument = htmltemplate.Must(
	htmltemplate.New("certificate").Funcs(htmltemplate.FuncMap{
		"safeCSS":  func(s string) htmltemplate.CSS { return htmltemplate.CSS(s) },
		"safeHTML": func(s string) htmltemplate.HTML { return htmltemplate.HTML(s) },
		"safeURL":  func(s string) htmltemplate.URL { return htmltemplate.URL(s) },
	}).Parse(documentTemplate),
)

type elementView struct {
	ID           string
	Kind         string
	Content      string
	Source       string
	WrapperStyle string
}

type documentView struct {
	Page      PageSettings
	RootStyle string
	Elements  []elementView
}

// Compose assembles the substituted document into one self-contained HTML
// string: a root container sized exactly to the page, one absolutely
// positioned child per element, later elements overlaying earlier ones.
func Compose(doc TemplateData) (string, error) {
	page := doc.PageSettings.Normalized()

	view := documentView{
		Page:      page,
		RootStyle: rootContainerCSS(page),
		Elements:  make([]elementView, 0, len(doc.Elements)),
	}

	for _, el := range doc.Elements {
		ev := elementView{
			ID:           el.ID,
			WrapperStyle: elementWrapperCSS(el),
		}
		switch el.Type {
		case TypeImage, TypeQR:
			ev.Kind = "image"
			ev.Source = el.Content
		case TypeShape:
			ev.Kind = "shape"
		default:
			ev.Kind = "text"
			ev.Content = el.Content
		}
		view.Elements = append(view.Elements, ev)
	}

	var b strings.Builder
	if err := compiledDocument.Execute(&b, view); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	return b.String(), nil
}

func rootContainerCSS(page PageSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "width: %spx; height: %spx; background-color: %s;",
		trimFloat(page.Width), trimFloat(page.Height), page.Background.Color)
	if page.Background.Border {
		fmt.Fprintf(&b, " border: %spx solid %s;",
			trimFloat(page.Background.BorderWidth), page.Background.BorderColor)
	}
	m := page.Margin
	if m.Top != 0 || m.Right != 0 || m.Bottom != 0 || m.Left != 0 {
		fmt.Fprintf(&b, " padding: %spx %spx %spx %spx;",
			trimFloat(m.Top), trimFloat(m.Right), trimFloat(m.Bottom), trimFloat(m.Left))
	}
	return b.String()
}

func elementWrapperCSS(el Element) string {
	var b strings.Builder
	fmt.Fprintf(&b, "position: absolute; left: %spx; top: %spx; width: %spx; height: %spx;",
		trimFloat(el.Position.X), trimFloat(el.Position.Y),
		trimFloat(el.Position.Width), trimFloat(el.Position.Height))

	if el.Type == TypeText {
		// Flex keeps vertical centering within the box consistent across the
		// DOM backends.
		b.WriteString(" display: flex; align-items: center;")
		switch fmt.Sprint(el.Style["textAlign"]) {
		case "center":
			b.WriteString(" justify-content: center;")
		case "right":
			b.WriteString(" justify-content: flex-end;")
		default:
			b.WriteString(" justify-content: flex-start;")
		}
	}

	if css := CSSString(el.Style); css != "" {
		b.WriteString(" ")
		b.WriteString(css)
	}
	return b.String()
}

// trimFloat renders page coordinates without a trailing ".000000" so the
// emitted CSS reads like hand-written pixel values.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}
