package main

//main.go
import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cspnonce/internal/core"
	httpx "cspnonce/internal/http"
	"cspnonce/internal/metrics"
	"cspnonce/internal/nonce"
	"cspnonce/internal/view"
)

func main() {
	// 1) Конфиг
	cfg, err := core.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// 2) Логи
	if err := core.InitDailyLog(cfg.LogDir, cfg.LogRetentionDays); err != nil {
		fmt.Fprintf(os.Stderr, "logs: %v\n", err)
		os.Exit(1)
	}
	defer core.Close()
	core.LogInfo("Конфигурация загружена", map[string]interface{}{
		"app":             cfg.AppName,
		"env":             cfg.Env,
		"secure":          cfg.Secure,
		"error_documents": len(cfg.ErrorDocuments),
		"rewrite_rules":   len(cfg.RewriteRules),
	})

	// 3) Проверяем источник энтропии до старта: без него сервер работает, но без nonce
	if _, err := nonce.Default().Mint(); err != nil {
		core.LogError("Источник энтропии недоступен", map[string]interface{}{"error": err.Error()})
	}

	// 4) Контекст для фоновых задач (ротация логов)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startLogRotation(ctx, cfg)

	// 5) Приложение
	handler, err := initHandler(cfg)
	if err != nil {
		core.LogError("Ошибка инициализации приложения", map[string]interface{}{"error": err.Error()})
		core.Close()
		os.Exit(1)
	}

	// 6) HTTP-сервер с таймаутами (OWASP A05)
	srv := core.Server(cfg, handler)

	// 7) Перехват сигналов
	sigs, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8) Запуск и ожидание завершения
	errc := runServer(srv, cfg)
	select {
	case err := <-errc:
		core.LogError("Ошибка работы сервера", map[string]interface{}{"error": err.Error()})
		core.Close()
		os.Exit(1)
	case <-sigs.Done():
	}
	waitShutdown(srv, cfg)
}

// startLogRotation — ротация в полночь: новый файл на новую дату и очистка старых
func startLogRotation(ctx context.Context, cfg core.Config) {
	go func() {
		timer := time.NewTimer(core.UntilRotation(time.Now()))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if err := core.InitDailyLog(cfg.LogDir, cfg.LogRetentionDays); err != nil {
					fmt.Fprintf(os.Stderr, "logs: %v\n", err)
				}
				timer.Reset(core.UntilRotation(time.Now()))
			}
		}
	}()
}

// initHandler — сборка приложения
func initHandler(cfg core.Config) (http.Handler, error) {
	tpl, err := view.New()
	if err != nil {
		return nil, err
	}
	return httpx.NewRouter(cfg, httpx.Deps{
		Templates: tpl,
		Minter:    nonce.Default(),
		Metrics:   metrics.New(),
	}), nil
}

// runServer — запуск (ListenAndServe / ListenAndServeTLS) в горутине
func runServer(srv *http.Server, cfg core.Config) <-chan error {
	errc := make(chan error, 1)
	go func() {
		core.LogInfo("http: сервер запущен", map[string]interface{}{"addr": cfg.Addr, "env": cfg.Env, "app": cfg.AppName})
		var err error
		if cfg.Secure && cfg.CertFile != "" {
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

// waitShutdown — корректное завершение
func waitShutdown(srv *http.Server, cfg core.Config) {
	core.LogInfo("http: начат процесс завершения", nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		core.LogError("Ошибка завершения сервера", map[string]interface{}{"error": err.Error()})
		return
	}
	core.LogInfo("http: завершение выполнено", nil)
}
