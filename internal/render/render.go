// Package render turns result views into HTML pages and plain-text tables.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

const layout = "layout.html"

// Pages rendered inside the layout.
const (
	PageTable            = "table.html"
	PageLogin            = "login.html"
	PageAdminAssumptions = "admin_assumptions.html"
)

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, page := range []string{PageTable, PageLogin, PageAdminAssumptions} {
		t, err := template.New(layout).ParseFS(templateFS, "templates/"+layout, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render writes page with data to w.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown template %s", page)
	}
	if err := t.ExecuteTemplate(w, layout, data); err != nil {
		return fmt.Errorf("render template %s: %w", page, err)
	}
	return nil
}

// HTML renders page into a buffer first so that a failed render never sends
// half a page, then writes it with status.
func (r *Renderer) HTML(w http.ResponseWriter, status int, page string, data any) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, page, data); err != nil {
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
