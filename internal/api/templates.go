package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// templateSet holds one parsed set per page, each combined with base.html.
type templateSet struct {
	pages map[string]*template.Template
}

func loadTemplates() (*templateSet, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	set := &templateSet{pages: map[string]*template.Template{}}
	for _, page := range pages {
		name := page[len("templates/"):]
		if name == "base.html" {
			continue
		}
		ts, err := template.ParseFS(templateFS, "templates/base.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		set.pages[name] = ts
	}
	return set, nil
}

// renderTemplate renders page inside base.html. Output is buffered so that a
// template error still produces a clean 500.
func (api *Api) renderTemplate(w http.ResponseWriter, r *http.Request, status int, page, title string, data map[string]any) {
	ts, ok := api.templates.pages[page]
	if !ok {
		api.log.Error(r.Context(), "template not found", "template", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["ActivePage"] = title
	data["SiteName"] = api.Config.SiteName

	var buf bytes.Buffer
	if err := ts.ExecuteTemplate(&buf, "base.html", data); err != nil {
		api.log.Error(r.Context(), "rendering template", "template", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
