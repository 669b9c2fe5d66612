package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	mainLogger  *zerolog.Logger
	errorLogger *zerolog.Logger
	closers     []io.Closer
	mu          sync.Mutex
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitDailyLog открывает журналы dir/DD-MM-YYYY.log и dir/errors-DD-MM-YYYY.log.
// Повторный вызов (ротация раз в сутки) закрывает предыдущие файлы.
func InitDailyLog(dir string, retentionDays int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("создание директории %s: %w", dir, err)
	}

	// Формируем имена файлов на основе текущей даты
	dateStr := time.Now().Format("02-01-2006")
	mainPath := filepath.Join(dir, dateStr+".log")
	errorPath := filepath.Join(dir, "errors-"+dateStr+".log")

	mainFile, err := os.OpenFile(mainPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("открытие основного лог-файла: %w", err)
	}

	errorFile, err := os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = mainFile.Close()
		return fmt.Errorf("открытие файла ошибок: %w", err)
	}

	mainLogger := zerolog.New(mainFile).With().Timestamp().Logger()
	errorLogger := zerolog.New(errorFile).With().Timestamp().Logger()

	swap(&Logger{
		mainLogger:  &mainLogger,
		errorLogger: &errorLogger,
		closers:     []io.Closer{mainFile, errorFile},
	})

	// Чистим старые логи при каждой ротации, а не только при старте
	cleanupOldLogs(dir, retentionDays)
	return nil
}

// UntilRotation — время до следующей полуночи (локальное время), когда меняется имя файла.
func UntilRotation(now time.Time) time.Duration {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}

// InitLogger направляет оба журнала в w (консоль, тесты).
func InitLogger(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	swap(&Logger{mainLogger: &l, errorLogger: &l})
}

func swap(next *Logger) {
	globalMu.Lock()
	prev := globalLogger
	globalLogger = next
	globalMu.Unlock()

	if prev != nil {
		prev.close()
	}
}

func LogInfo(msg string, fields map[string]interface{}) {
	write(func(l *Logger) *zerolog.Event { return l.mainLogger.Info() }, msg, fields)
}

func LogWarn(msg string, fields map[string]interface{}) {
	write(func(l *Logger) *zerolog.Event { return l.mainLogger.Warn() }, msg, fields)
}

func LogError(msg string, fields map[string]interface{}) {
	write(func(l *Logger) *zerolog.Event { return l.errorLogger.Error() }, msg, fields)
}

func write(level func(*Logger) *zerolog.Event, msg string, fields map[string]interface{}) {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l == nil {
		return // Игнорируем, если логгер закрыт
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event := level(l)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func cleanupOldLogs(dir string, days int) {
	files, err := os.ReadDir(dir)
	if err != nil {
		LogError("Не удалось прочитать директорию логов", map[string]interface{}{"dir": dir, "error": err.Error()})
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, file.Name())
			if err := os.Remove(path); err != nil {
				LogError("Удаление старого лога", map[string]interface{}{"path": path, "error": err.Error()})
			}
		}
	}
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Ошибки закрытия — в stderr, файлов уже нет
	consoleLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			consoleLogger.Error().Msgf("Закрытие лог-файла: %v", err)
		}
	}
}

func Close() {
	swap(nil)
}
