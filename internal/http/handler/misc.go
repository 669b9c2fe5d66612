package handler

import (
	"net/http"

	"cspnonce/internal/core"
	"cspnonce/internal/pipeline"
)

// Health — healthcheck с core.JSON (OWASP A09).
func Health(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DebugEnv отдаёт окружение текущей попытки (только dev/staging).
func DebugEnv(w http.ResponseWriter, r *http.Request) {
	a := pipeline.FromContext(r.Context())
	if a == nil {
		core.Fail(w, r, core.Internal("Окружение запроса недоступно", nil))
		return
	}
	core.JSON(w, http.StatusOK, map[string]any{
		"uri":          a.URI(),
		"continuation": a.IsContinuation(),
		"depth":        a.Depth(),
		"keys":         a.Env().Keys(),
		"env":          a.Env().Map(),
	})
}
