// Package pipeline — хост обработки запросов: окружение на каждую попытку,
// post-read-request хуки, ErrorDocument и rewrite через внутренние редиректы.
package pipeline

// pipeline.go
import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"cspnonce/internal/core"
)

// Причины внутреннего редиректа (метки метрик).
const (
	ReasonErrorDocument = "error_document"
	ReasonRewrite       = "rewrite"
	ReasonLimit         = "limit"
)

const defaultMaxRedirects = 10

// Hook вызывается один раз на каждую попытку, до обработчиков.
// Хук не может остановить запрос — только дополнить окружение.
type Hook interface {
	PostReadRequest(r *http.Request, a *Attempt)
}

type HookFunc func(r *http.Request, a *Attempt)

func (f HookFunc) PostReadRequest(r *http.Request, a *Attempt) { f(r, a) }

// Rule — правило rewrite: путь, совпавший с Pattern, заменяется на Target ($1.. — группы).
type Rule struct {
	Pattern *regexp.Regexp
	Target  string
}

type Options struct {
	// ErrorDocuments — статус -> локальный путь страницы ошибки.
	ErrorDocuments map[int]string
	Rules          []Rule
	// MaxInternalRedirects ограничивает глубину цепочки (0 — по умолчанию 10).
	MaxInternalRedirects int
	// OnRedirect получает причину каждого внутреннего редиректа.
	OnRedirect func(reason string)
}

// Pipeline обслуживает клиентский запрос одной или несколькими попытками через next.
type Pipeline struct {
	next  http.Handler
	hooks []Hook
	opts  Options
}

func New(next http.Handler, opts Options, hooks ...Hook) *Pipeline {
	if opts.MaxInternalRedirects <= 0 {
		opts.MaxInternalRedirects = defaultMaxRedirects
	}
	return &Pipeline{next: next, hooks: hooks, opts: opts}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, newAttempt(r.URL.Path))
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, a *Attempt) {
	for _, h := range p.hooks {
		h.PostReadRequest(r, a)
	}

	if target, ok := p.rewrite(r.URL.Path); ok {
		p.redirect(w, r, a, target, 0, ReasonRewrite)
		return
	}

	snapshot := w.Header().Clone()
	iw := &interceptWriter{ResponseWriter: w}
	if a.status == 0 && len(p.opts.ErrorDocuments) > 0 {
		iw.divert = func(code int) bool {
			_, ok := p.opts.ErrorDocuments[code]
			return ok
		}
	}

	p.next.ServeHTTP(iw, r.WithContext(NewContext(r.Context(), a)))

	if iw.diverted == 0 {
		return
	}

	// Заголовки отвергнутого ответа не должны попасть на страницу ошибки
	h := w.Header()
	for k := range h {
		delete(h, k)
	}
	for k, v := range snapshot {
		h[k] = v
	}
	p.redirect(w, r, a, p.opts.ErrorDocuments[iw.diverted], iw.diverted, ReasonErrorDocument)
}

func (p *Pipeline) rewrite(path string) (string, bool) {
	for _, rule := range p.opts.Rules {
		idx := rule.Pattern.FindStringSubmatchIndex(path)
		if idx == nil {
			continue
		}
		target := string(rule.Pattern.ExpandString(nil, rule.Target, path, idx))
		if target == path {
			return "", false
		}
		return target, true
	}
	return "", false
}

// redirect открывает следующую попытку того же клиентского запроса.
func (p *Pipeline) redirect(w http.ResponseWriter, r *http.Request, prev *Attempt, target string, status int, reason string) {
	if prev.depth >= p.opts.MaxInternalRedirects {
		p.observe(ReasonLimit)
		core.LogError("Превышен лимит внутренних редиректов", map[string]interface{}{
			"uri":    prev.uri,
			"target": target,
			"depth":  prev.depth,
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	u, err := url.Parse(target)
	if err != nil || u.Path == "" {
		core.LogError("Некорректная цель внутреннего редиректа", map[string]interface{}{"target": target, "reason": reason})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	p.observe(reason)

	env := prev.env.Redirected()
	env.Set("REDIRECT_URL", prev.uri)
	if status != 0 {
		env.Set("REDIRECT_STATUS", strconv.Itoa(status))
	}
	next := &Attempt{
		env:          env,
		continuation: true,
		depth:        prev.depth + 1,
		uri:          u.Path,
		status:       status,
	}
	if status == 0 {
		next.status = prev.status
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = u.Path
	r2.URL.RawPath = ""
	if u.RawQuery != "" {
		r2.URL.RawQuery = u.RawQuery
	}
	r2.RequestURI = r2.URL.RequestURI()

	if status != 0 {
		if r2.Method != http.MethodHead {
			r2.Method = http.MethodGet
		}
		r2.Body = http.NoBody
		r2.ContentLength = 0
		w = &statusWriter{ResponseWriter: w, status: status}
	}

	p.serve(w, r2, next)
}

func (p *Pipeline) observe(reason string) {
	if p.opts.OnRedirect != nil {
		p.opts.OnRedirect(reason)
	}
}
