package httpx

// nonce.go
import (
	"net/http"

	"cspnonce/internal/core"
	"cspnonce/internal/lineage"
	"cspnonce/internal/metrics"
	"cspnonce/internal/pipeline"

	"github.com/go-chi/chi/v5/middleware"
)

// NonceHook — post-read-request хук: вызывает политику на каждой попытке.
// Отказ источника энтропии не останавливает запрос, только пишется в журнал.
func NonceHook(p *lineage.Policy, m *metrics.Metrics) pipeline.Hook {
	return pipeline.HookFunc(func(r *http.Request, a *pipeline.Attempt) {
		outcome, err := p.OnRequest(a)
		if m != nil {
			m.Nonce(outcome.String())
		}
		if err != nil {
			core.LogError("CSP nonce не выпущен", map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"path":       r.URL.Path,
				"depth":      a.Depth(),
				"error":      err.Error(),
			})
		}
	})
}
