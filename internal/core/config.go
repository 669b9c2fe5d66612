package core

//config.go

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config определяет настройки приложения (OWASP A05: Security Misconfiguration, A02: Cryptographic Failures).
// Сам генератор nonce настроек не имеет — здесь только хост вокруг него.
type Config struct {
	AppName              string         `validate:"required"`
	Addr                 string         `validate:"required"`
	Env                  string         `validate:"oneof=dev staging prod"`
	CSRFKey              string         `validate:"required"`
	Secure               bool           // Включает HTTPS-зависимые заголовки и Secure-куки
	CertFile             string         // Путь к TLS-сертификату
	KeyFile              string         `validate:"required_with=CertFile"`
	ShutdownTimeout      time.Duration  `validate:"gt=0"`
	ReadHeaderTimeout    time.Duration  `validate:"gt=0"`
	ReadTimeout          time.Duration  `validate:"gt=0"`
	WriteTimeout         time.Duration  `validate:"gt=0"`
	IdleTimeout          time.Duration  `validate:"gt=0"`
	RequestTimeout       time.Duration  `validate:"gte=0"`
	LogDir               string         `validate:"required"`
	LogRetentionDays     int            `validate:"gte=1"`
	TrustedProxies       []string       `validate:"dive,cidr|ip"`
	ErrorDocuments       map[int]string `validate:"dive,keys,gte=400,lte=599,endkeys,startswith=/"`
	RewriteRules         []RewriteRule
	MaxInternalRedirects int `validate:"gte=1,lte=100"`
}

// RewriteRule — правило внутреннего редиректа: путь, совпавший с Pattern,
// переписывается в Target ($1.. — группы Pattern).
type RewriteRule struct {
	Pattern *regexp.Regexp
	Target  string
}

var validate = validator.New()

// Load загружает конфигурацию из переменных окружения с значениями по умолчанию (OWASP A05)
func Load() (Config, error) {
	cfg := Config{
		AppName:              getEnv("APP_NAME", "cspnonce"),
		Addr:                 getEnv("HTTP_ADDR", ":8080"),
		Env:                  getEnv("APP_ENV", "dev"),
		CSRFKey:              getEnv("CSRF_KEY", ""),
		Secure:               getEnv("SECURE", "") == "true",
		CertFile:             getEnv("TLS_CERT_FILE", ""),
		KeyFile:              getEnv("TLS_KEY_FILE", ""),
		ShutdownTimeout:      getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ReadHeaderTimeout:    getEnvDuration("READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:          getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:          getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		LogDir:               getEnv("LOG_DIR", "logs"),
		LogRetentionDays:     getEnvInt("LOG_RETENTION_DAYS", 7),
		TrustedProxies:       splitList(getEnv("TRUSTED_PROXIES", "")),
		MaxInternalRedirects: getEnvInt("MAX_INTERNAL_REDIRECTS", 10),
	}

	if cfg.CSRFKey == "" {
		if cfg.Env == "prod" {
			return Config{}, fmt.Errorf("CSRF_KEY обязателен в продакшене")
		}
		key, err := generateRandomKey()
		if err != nil {
			return Config{}, err
		}
		cfg.CSRFKey = key
	}

	docs, err := parseErrorDocuments(getEnv("ERROR_DOCUMENTS", "403=/errors/403,404=/errors/404,500=/errors/500"))
	if err != nil {
		return Config{}, err
	}
	cfg.ErrorDocuments = docs

	rules, err := parseRewriteRules(getEnv("REWRITE_RULES", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.RewriteRules = rules

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию тегами validator и продакшен-требования (OWASP A02).
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	if c.Env == "prod" && len(c.CSRFKey) < 32 {
		return fmt.Errorf("недостаточная длина CSRF_KEY в продакшене: %d", len(c.CSRFKey))
	}
	if c.Env == "prod" && c.Secure && c.CertFile == "" {
		return fmt.Errorf("отсутствует TLS_CERT_FILE или TLS_KEY_FILE в продакшене")
	}
	return nil
}

// IsProd — продакшен-среда.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// parseErrorDocuments разбирает "404=/errors/404,500=/errors/500".
func parseErrorDocuments(s string) (map[int]string, error) {
	docs := make(map[int]string)
	for _, item := range splitList(s) {
		code, path, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("ERROR_DOCUMENTS: ожидается код=путь, получено %q", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("ERROR_DOCUMENTS: неверный код %q: %w", code, err)
		}
		docs[n] = strings.TrimSpace(path)
	}
	return docs, nil
}

// parseRewriteRules разбирает "^/old/(.*)$=/$1;^/legacy$=/" (правила через ';').
func parseRewriteRules(s string) ([]RewriteRule, error) {
	var rules []RewriteRule
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		i := strings.LastIndex(item, "=")
		if i <= 0 || i == len(item)-1 {
			return nil, fmt.Errorf("REWRITE_RULES: ожидается шаблон=цель, получено %q", item)
		}
		re, err := regexp.Compile(item[:i])
		if err != nil {
			return nil, fmt.Errorf("REWRITE_RULES: %w", err)
		}
		rules = append(rules, RewriteRule{Pattern: re, Target: item[i+1:]})
	}
	return rules, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

// getEnvDuration возвращает значение длительности из переменной окружения или значение по умолчанию
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		LogWarn("Неверный формат длительности", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return d
}

func getEnvInt(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		LogWarn("Неверный формат числа", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// generateRandomKey создаёт случайный 32-байтовый ключ для CSRF в формате base64 (dev/staging)
func generateRandomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("генерация CSRF-ключа: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
