// Package nonce выпускает CSP nonce: 9 случайных байт из CSPRNG ОС,
// закодированные стандартным base64 ровно в 12 символов без '='.
package nonce

// encoder.go
import (
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// Size — число случайных байт. Кратно 3, поэтому base64 никогда не добавляет паддинг.
	Size = 9
	// Length — длина токена в символах (Size / 3 * 4).
	Length = Size / 3 * 4
)

var (
	// ErrSourceUnavailable — источник энтропии не удалось открыть.
	ErrSourceUnavailable = errors.New("nonce: entropy source unavailable")
	// ErrReadFailure — источник открыт, но не отдал нужное число байт.
	ErrReadFailure = errors.New("nonce: entropy read failure")
)

// Encoder — stateless генератор токенов. Безопасен для конкурентного использования,
// если таковым является его Source (системный источник — является).
type Encoder struct {
	src Source
}

// NewEncoder создаёт Encoder поверх src. nil означает «источника нет»:
// каждый Mint вернёт ErrSourceUnavailable, без подмены на слабый генератор.
func NewEncoder(src Source) *Encoder {
	return &Encoder{src: src}
}

// Default — Encoder поверх системного CSPRNG.
func Default() *Encoder {
	return NewEncoder(OS())
}

// Mint выпускает новый токен. Случайные байты живут только внутри вызова.
func (e *Encoder) Mint() (string, error) {
	if e == nil || e.src == nil {
		return "", ErrSourceUnavailable
	}

	var raw [Size]byte
	defer clear(raw[:])

	if err := e.src.Fill(raw[:]); err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return Encode(raw), nil
}

// Encode детерминированно кодирует raw в 12 символов стандартного алфавита base64.
func Encode(raw [Size]byte) string {
	var out [Length]byte
	base64.StdEncoding.Encode(out[:], raw[:])
	return string(out[:])
}
