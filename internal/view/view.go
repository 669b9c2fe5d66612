package view

//view.go
import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"cspnonce/internal/core"
	"cspnonce/internal/lineage"
	"cspnonce/internal/pipeline"

	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var files embed.FS

// Templates — структура для хранения шаблонов (layout + страница).
type Templates struct {
	templates map[string]*template.Template
}

// PageData — унифицированная структура для всех шаблонов (OWASP A03, A07).
type PageData struct {
	Title     string
	CSRFField template.HTML
	Nonce     string // CSP_NONCE текущей попытки; пусто, если nonce не выпущен
	Data      any
}

var pages = []string{"home", "about", "form", "error"}

// New парсит шаблоны один раз при старте (OWASP A05).
func New() (*Templates, error) {
	layout, err := template.ParseFS(files, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга layout: %w", err)
	}

	t := &Templates{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tpl, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tpl.ParseFS(files, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("ошибка парсинга шаблона %q: %w", name, err)
		}
		if tpl.Lookup("content") == nil {
			return nil, fmt.Errorf("в шаблоне %s отсутствует define \"content\"", name)
		}
		t.templates[name] = tpl
	}
	return t, nil
}

// Render рендерит страницу со статусом 200.
func (t *Templates) Render(w http.ResponseWriter, r *http.Request, name, title string, data any) error {
	return t.RenderStatus(w, r, http.StatusOK, name, title, data)
}

// RenderStatus рендерит страницу в буфер и только затем пишет ответ,
// чтобы ошибка шаблона не оставила клиенту половину страницы.
func (t *Templates) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) error {
	tpl, ok := t.templates[name]
	if !ok {
		return fmt.Errorf("шаблон не найден: %s", name)
	}

	// Без nonce страница всё равно отдаётся: атрибут nonce просто не выводится
	nonce := pipeline.Lookup(r, lineage.EnvKey)
	if nonce == "" {
		core.LogWarn("CSP nonce отсутствует в окружении запроса", map[string]interface{}{"path": r.URL.Path})
	}

	var buf bytes.Buffer
	err := tpl.ExecuteTemplate(&buf, "base", PageData{
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		Nonce:     nonce,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("рендеринг %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
