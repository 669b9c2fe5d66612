package nonce

// source.go
import (
	"crypto/rand"
	"io"
)

// Source — источник криптостойких случайных байт.
// Fill обязан заполнить буфер целиком либо вернуть ошибку.
type Source interface {
	Fill(b []byte) error
}

// SourceFunc позволяет использовать функцию как Source.
type SourceFunc func(b []byte) error

func (f SourceFunc) Fill(b []byte) error { return f(b) }

// osSource читает из CSPRNG операционной системы через crypto/rand:
// getrandom(2) на Linux, arc4random на Darwin/BSD, ProcessPrng на Windows.
// Запасного PRNG с сидом от времени нет ни на одной платформе.
type osSource struct{}

func (osSource) Fill(b []byte) error {
	_, err := io.ReadFull(rand.Reader, b)
	return err
}

// OS возвращает системный источник энтропии.
// У crypto/rand нет отдельного шага открытия: любой его отказ проявляется при
// чтении и становится ErrReadFailure. ErrSourceUnavailable означает только
// отсутствующий источник (nil).
func OS() Source {
	return osSource{}
}
