package handler

// errors.go
import (
	"net/http"
	"strconv"

	"cspnonce/internal/core"
	"cspnonce/internal/pipeline"
	"cspnonce/internal/view"

	"github.com/go-chi/chi/v5"
)

// ErrorPage — данные страницы ошибки.
type ErrorPage struct {
	Status int
	URL    string
}

// NotFound отвечает 404; тело заменит ErrorDocument, если он настроен.
func NotFound(w http.ResponseWriter, r *http.Request) {
	core.Fail(w, r, core.NotFound("Страница не найдена"))
}

// MethodNotAllowed — 405 в формате ProblemDetail.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	core.Fail(w, r, &core.AppError{
		Code:    "method_not_allowed",
		Status:  http.StatusMethodNotAllowed,
		Message: "Метод не поддерживается",
	})
}

// ErrorDocument — страница ошибки для внутренних редиректов (/errors/{code}).
// Статус ответа выставляет Pipeline; открытая напрямую страница отдаёт 200.
func ErrorDocument(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(chi.URLParam(r, "code"))
		if err != nil || code < 400 || code > 599 {
			code = http.StatusInternalServerError
		}
		if s := pipeline.Lookup(r, "REDIRECT_STATUS"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				code = n
			}
		}

		data := ErrorPage{Status: code, URL: pipeline.Lookup(r, "REDIRECT_URL")}
		if err := tpl.Render(w, r, "error", http.StatusText(code), data); err != nil {
			core.LogError("Ошибка рендеринга страницы ошибки", map[string]interface{}{
				"error": err.Error(),
				"path":  r.URL.Path,
			})
			http.Error(w, http.StatusText(code), code)
		}
	}
}
