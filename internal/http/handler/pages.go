package handler

// pages.go
import (
	"net/http"

	"cspnonce/internal/core"
	"cspnonce/internal/view"
)

// Home возвращает обработчик для главной страницы (OWASP A03: Injection)
func Home(tpl *view.Templates) http.HandlerFunc {
	return page(tpl, "home", "Главная")
}

// About — страница "О сервисе"
func About(tpl *view.Templates) http.HandlerFunc {
	return page(tpl, "about", "О сервисе")
}

func page(tpl *view.Templates, name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tpl.Render(w, r, name, title, nil); err != nil {
			core.Fail(w, r, core.Internal("Ошибка отображения страницы", err))
		}
	}
}
