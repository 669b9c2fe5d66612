package middleware

import (
	"net/http"
	"time"

	"cspnonce/internal/core"

	"github.com/go-chi/chi/v5/middleware"
)

// AccessLog пишет одну запись на клиентский запрос, сколько бы внутренних
// попыток он ни прошёл. Окружение попытки (и nonce) в журнал не попадает.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			core.LogInfo("http request", map[string]interface{}{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      r.RemoteAddr,
			})
		}()

		next.ServeHTTP(ww, r)
	})
}
