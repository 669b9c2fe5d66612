// Package lineage решает, выпустить ли новый CSP nonce или переиспользовать уже
// выпущенный, когда один клиентский запрос проходит несколько внутренних попыток
// (ErrorDocument, внутренние редиректы rewrite).
package lineage

// policy.go
const (
	// EnvKey — ключ, под которым nonce публикуется в окружении попытки.
	EnvKey = "CSP_NONCE"
	// RedirectEnvKey — ключ, под которым хост переносит nonce предыдущей попытки.
	RedirectEnvKey = "REDIRECT_" + EnvKey
)

// Attempt — одна попытка обработки запроса, как её видит политика.
type Attempt interface {
	// IsContinuation сообщает, что попытка — продолжение внутреннего редиректа.
	IsContinuation() bool
	Lookup(key string) (string, bool)
	Set(key, value string)
}

// Minter выпускает новый токен (nonce.Encoder).
type Minter interface {
	Mint() (string, error)
}

// Outcome — чем закончился вызов OnRequest.
type Outcome int

const (
	OutcomeMinted Outcome = iota
	OutcomeReused
	OutcomeKept
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMinted:
		return "minted"
	case OutcomeReused:
		return "reused"
	case OutcomeKept:
		return "kept"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Policy публикует ровно один nonce на логический клиентский запрос.
type Policy struct {
	minter Minter
}

func New(m Minter) *Policy {
	return &Policy{minter: m}
}

// OnRequest вызывается хостом один раз на попытку, до обработчиков.
// Ошибка только информирует: запрос в любом случае обрабатывается дальше,
// а при неудаче CSP_NONCE просто отсутствует в окружении.
func (p *Policy) OnRequest(a Attempt) (Outcome, error) {
	if v, ok := a.Lookup(EnvKey); ok && v != "" {
		return OutcomeKept, nil
	}

	if a.IsContinuation() {
		if v, ok := a.Lookup(RedirectEnvKey); ok && v != "" {
			a.Set(EnvKey, v)
			return OutcomeReused, nil
		}
	}

	tok, err := p.minter.Mint()
	if err != nil {
		return OutcomeFailed, err
	}
	a.Set(EnvKey, tok)
	return OutcomeMinted, nil
}
