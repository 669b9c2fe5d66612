package httpx

// router.go
import (
	"net/http"

	"cspnonce/internal/core"
	"cspnonce/internal/http/handler"
	mw "cspnonce/internal/http/middleware"
	"cspnonce/internal/lineage"
	"cspnonce/internal/metrics"
	"cspnonce/internal/pipeline"
	"cspnonce/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps — зависимости обработчиков.
type Deps struct {
	Templates *view.Templates
	Minter    lineage.Minter
	Metrics   *metrics.Metrics
}

// NewRouter собирает приложение:
//
//	общие middleware (один раз на клиентский запрос)
//	  -> Pipeline (попытки, хуки, ErrorDocument, rewrite)
//	    -> chi-маршруты (на каждую попытку)
func NewRouter(cfg core.Config, d Deps) http.Handler {
	routes := chi.NewRouter()
	routes.Use(middleware.Recoverer, middleware.GetHead)
	routes.NotFound(handler.NotFound)
	routes.MethodNotAllowed(handler.MethodNotAllowed)

	// --- Страницы ---
	routes.Get("/", handler.Home(d.Templates))
	routes.Get("/about", handler.About(d.Templates))
	routes.Get("/errors/{code}", handler.ErrorDocument(d.Templates))

	// --- Форма (GET/POST) с CSRF ---
	routes.Group(func(r chi.Router) {
		r.Use(mw.CSRF(cfg.CSRFKey, cfg.Secure))
		r.Get("/form", handler.FormIndex(d.Templates))
		r.Post("/form", handler.FormSubmit(d.Templates))
	})

	// --- Служебные ---
	routes.Get("/healthz", handler.Health)
	if d.Metrics != nil {
		routes.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if !cfg.IsProd() {
		routes.Get("/debug/env", handler.DebugEnv)
	}

	opts := pipeline.Options{
		ErrorDocuments:       cfg.ErrorDocuments,
		MaxInternalRedirects: cfg.MaxInternalRedirects,
	}
	for _, rule := range cfg.RewriteRules {
		opts.Rules = append(opts.Rules, pipeline.Rule{Pattern: rule.Pattern, Target: rule.Target})
	}
	if d.Metrics != nil {
		opts.OnRedirect = d.Metrics.Redirect
	}
	p := pipeline.New(routes, opts, NonceHook(lineage.New(d.Minter), d.Metrics))

	common := []func(http.Handler) http.Handler{
		middleware.RequestID,
	}
	if len(cfg.TrustedProxies) > 0 {
		common = append(common, mw.TrustedProxy(cfg.TrustedProxies), middleware.RealIP)
	}
	common = append(common,
		mw.AccessLog,
		middleware.Recoverer,
		mw.SecureHeaders(cfg.IsProd(), cfg.Secure),
	)
	if cfg.RequestTimeout > 0 {
		common = append(common, middleware.Timeout(cfg.RequestTimeout))
	}

	return chi.Chain(common...).Handler(p)
}
