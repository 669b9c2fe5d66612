package pipeline

// attempt.go
import (
	"context"
	"net/http"
)

// Attempt — одна попытка обработки клиентского запроса. Первая попытка создаётся
// на каждый клиентский запрос, следующие — внутренними редиректами. Попытки не
// ссылаются друг на друга: всё, что переходит дальше, переносится копией Env.
type Attempt struct {
	env          *Env
	continuation bool
	depth        int
	uri          string
	status       int
}

func newAttempt(uri string) *Attempt {
	return &Attempt{env: NewEnv(), uri: uri}
}

// IsContinuation — попытка открыта внутренним редиректом.
func (a *Attempt) IsContinuation() bool { return a.continuation }

func (a *Attempt) Lookup(key string) (string, bool) { return a.env.Get(key) }

func (a *Attempt) Set(key, value string) { a.env.Set(key, value) }

func (a *Attempt) Env() *Env { return a.env }

// Depth — число внутренних редиректов до этой попытки.
func (a *Attempt) Depth() int { return a.depth }

// URI — путь, который обслуживает попытка.
func (a *Attempt) URI() string { return a.uri }

// ErrorStatus — статус, ради которого открыт ErrorDocument (0, если попытка не страница ошибки).
func (a *Attempt) ErrorStatus() int { return a.status }

type ctxKey string

const ctxAttempt ctxKey = "attempt"

// NewContext кладёт попытку в контекст запроса.
func NewContext(ctx context.Context, a *Attempt) context.Context {
	return context.WithValue(ctx, ctxAttempt, a)
}

// FromContext достаёт попытку из контекста; nil, если запрос пришёл мимо Pipeline.
func FromContext(ctx context.Context) *Attempt {
	a, _ := ctx.Value(ctxAttempt).(*Attempt)
	return a
}

// Lookup — значение ключа окружения текущей попытки или "".
func Lookup(r *http.Request, key string) string {
	a := FromContext(r.Context())
	if a == nil {
		return ""
	}
	v, _ := a.Lookup(key)
	return v
}
