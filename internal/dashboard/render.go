package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/KaramelBytes/titanic-analytics/internal/copilot"
	"github.com/KaramelBytes/titanic-analytics/internal/table"
)

//go:embed templates/*
var embeddedFiles embed.FS

type views struct {
	pages *template.Template
	intro template.HTML
}

func parseViews() (*views, error) {
	funcMap := template.FuncMap{
		"md":       copilot.HTML,
		"typeIcon": copilot.TypeIcon,
		"viewIcon": copilot.SectionIcon,
		"percent":  charts.Percent,
		"add":      func(a, b int) int { return a + b },
		"lower":    strings.ToLower,
		"pid":      table.PassengerID,
		"cell": func(r api.Record, col string) string {
			v, _ := r.Get(col)
			return table.Format(col, v)
		},
	}
	pages, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	src, err := embeddedFiles.ReadFile("templates/intro.md")
	if err != nil {
		return nil, fmt.Errorf("failed to read intro: %w", err)
	}
	return &views{pages: pages, intro: renderMarkdown(src)}, nil
}

// renderMarkdown converts trusted, embedded markdown to HTML.
func renderMarkdown(src []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	return template.HTML(markdown.ToHTML(src, p, r))
}

// render executes name into a buffer first so a template failure never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.views.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
