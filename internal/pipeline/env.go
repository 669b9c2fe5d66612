package pipeline

import "sort"

// RedirectPrefix добавляется ко всем ключам окружения при внутреннем редиректе.
const RedirectPrefix = "REDIRECT_"

// Env — окружение одной попытки обработки (аналог subprocess_env).
// Принадлежит попытке целиком, блокировок не требует.
type Env struct {
	m map[string]string
}

func NewEnv() *Env {
	return &Env{m: make(map[string]string)}
}

func (e *Env) Get(key string) (string, bool) {
	v, ok := e.m[key]
	return v, ok
}

func (e *Env) Set(key, value string) {
	e.m[key] = value
}

// Keys — ключи в отсортированном порядке.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.m))
	for k := range e.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map возвращает копию окружения.
func (e *Env) Map() map[string]string {
	out := make(map[string]string, len(e.m))
	for k, v := range e.m {
		out[k] = v
	}
	return out
}

// Redirected — окружение следующей попытки: копия, где каждый ключ получил префикс REDIRECT_.
func (e *Env) Redirected() *Env {
	next := &Env{m: make(map[string]string, len(e.m)+2)}
	for k, v := range e.m {
		next.m[RedirectPrefix+k] = v
	}
	return next
}
