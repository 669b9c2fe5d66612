package handler

// form.go
import (
	"errors"
	"net/http"
	"strings"

	"cspnonce/internal/core"
	"cspnonce/internal/view"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

type FormData struct {
	Name    string `validate:"required,min=2,max=100"`
	Email   string `validate:"required,email"`
	Message string `validate:"required,max=2000"`
}

type FormView struct {
	Form   FormData
	Errors map[string]string
	OK     bool
}

var (
	validate  = validator.New()
	sanitizer = bluemonday.StrictPolicy()
)

// FormIndex рендерит форму (GET).
func FormIndex(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := FormView{OK: r.URL.Query().Get("ok") == "1"}
		if err := tpl.Render(w, r, "form", "Обратная связь", data); err != nil {
			core.Fail(w, r, core.Internal("Ошибка отображения формы", err))
		}
	}
}

// FormSubmit обрабатывает отправку формы (POST).
func FormSubmit(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB (OWASP A05).
		if err := r.ParseForm(); err != nil {
			core.Fail(w, r, core.BadRequest("Некорректное тело запроса", err))
			return
		}

		f := FormData{
			Name:    sanitizer.Sanitize(strings.TrimSpace(r.PostForm.Get("name"))),
			Email:   sanitizer.Sanitize(strings.TrimSpace(r.PostForm.Get("email"))),
			Message: sanitizer.Sanitize(strings.TrimSpace(r.PostForm.Get("message"))),
		}

		if errs := validateForm(f); len(errs) > 0 {
			data := FormView{Form: f, Errors: errs}
			if err := tpl.RenderStatus(w, r, http.StatusUnprocessableEntity, "form", "Обратная связь", data); err != nil {
				core.Fail(w, r, core.Internal("Ошибка отображения формы", err))
			}
			return
		}

		core.LogInfo("Получено сообщение обратной связи", map[string]interface{}{
			"email_domain": emailDomain(f.Email),
			"length":       len(f.Message),
		})
		http.Redirect(w, r, "/form?ok=1", http.StatusSeeOther)
	}
}

func validateForm(f FormData) map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	errs := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		core.LogError("Unexpected validation error", map[string]interface{}{"error": err.Error()})
		errs["form"] = "Ошибка валидации"
		return errs
	}
	for _, e := range verrs {
		switch e.Field() {
		case "Name":
			switch e.Tag() {
			case "required":
				errs["name"] = "Укажите имя"
			case "min":
				errs["name"] = "Имя должно быть не короче 2 символов"
			default:
				errs["name"] = "Слишком длинное имя (макс. 100)"
			}
		case "Email":
			if e.Tag() == "required" {
				errs["email"] = "Укажите email"
			} else {
				errs["email"] = "Введите корректный email"
			}
		case "Message":
			if e.Tag() == "required" {
				errs["message"] = "Напишите сообщение"
			} else {
				errs["message"] = "Слишком длинное сообщение (макс. 2000)"
			}
		}
	}
	return errs
}

func emailDomain(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return domain
	}
	return ""
}
