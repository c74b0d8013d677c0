// Package web serves the browser front end: an HTML page rendered from the
// session controller plus a small JSON surface for polling and history.
package web

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/controller"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

const DefaultRefreshSeconds = 1

// Page is the data handed to the page template.
type Page struct {
	View           controller.View
	Prompt         string
	RefreshSeconds int
}

// PreviewURL returns the preview as a URL the template may place in src.
// Only data: URIs produced by the previewer are passed through unescaped.
func (p Page) PreviewURL() template.URL {
	if p.View.Preview == "" {
		return ""
	}
	if !strings.HasPrefix(p.View.Preview, "data:") {
		return ""
	}
	return template.URL(p.View.Preview)
}

// RenderPage writes the full HTML document for p.
func RenderPage(w io.Writer, p Page) error {
	if p.RefreshSeconds <= 0 {
		p.RefreshSeconds = DefaultRefreshSeconds
	}
	return pageTemplate.Execute(w, p)
}
