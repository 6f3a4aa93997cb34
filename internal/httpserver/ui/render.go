package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/format"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
)

//go:embed templates
var embeddedTemplates embed.FS

// Renderer executes page templates. Each page is parsed together with the
// base layout and the shared partials; the parsed set is cached unless the
// renderer reads from a development directory.
type Renderer struct {
	files  fs.FS
	reload bool

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewRenderer returns a renderer over the embedded templates. When dir is
// non-empty templates are read from disk and reparsed on every render.
func NewRenderer(dir string) (*Renderer, error) {
	r := &Renderer{cache: make(map[string]*template.Template)}
	if strings.TrimSpace(dir) != "" {
		r.files = os.DirFS(dir)
		r.reload = true
		return r, nil
	}
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("ui: templates: %w", err)
	}
	r.files = sub

	pages, err := fs.Glob(r.files, "pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("ui: list pages: %w", err)
	}
	for _, p := range pages {
		name := strings.TrimSuffix(path.Base(p), ".tmpl")
		if _, err := r.lookup(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Renderer) lookup(page string) (*template.Template, error) {
	if !r.reload {
		r.mu.Lock()
		defer r.mu.Unlock()
		if t, ok := r.cache[page]; ok {
			return t, nil
		}
	}
	t, err := template.New(page).Funcs(funcs).ParseFS(r.files,
		"layouts/*.tmpl",
		"partials/*.tmpl",
		"pages/"+page+".tmpl",
	)
	if err != nil {
		return nil, fmt.Errorf("ui: parse %s: %w", page, err)
	}
	if !r.reload {
		r.cache[page] = t
	}
	return t, nil
}

// renderPage executes the base layout of page.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, status int, page string, data any) {
	r.execute(w, req, status, page, "base", data)
}

// renderTemplate executes one named block of page, for htmx swaps.
func (r *Renderer) renderTemplate(w http.ResponseWriter, req *http.Request, status int, page, name string, data any) {
	r.execute(w, req, status, page, name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, req *http.Request, status int, page, name string, data any) {
	logger := observability.FromContext(req.Context())
	t, err := r.lookup(page)
	if err != nil {
		logger.Error("template parse failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("template exec failed", zap.String("page", page), zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"naira":   format.Naira,
	"number":  format.Number,
	"percent": format.Percent,
	"date":    format.Date,
	"scoreTone": func(score int) string {
		return string(format.ScoreTone(score))
	},
	"repaymentTone": func(r scoring.Repayment) string {
		return string(format.RepaymentTone(r.Percent, r.HasPercent))
	},
	"repayment": repaymentText,
	"add": func(a, b int) int {
		return a + b
	},
}

func repaymentText(r scoring.Repayment) string {
	switch {
	case r.HasPercent:
		return format.Percent(r.Percent)
	case r.Label != "":
		return r.Label
	default:
		return "Not available"
	}
}
