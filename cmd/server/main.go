package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/config"
	"gembiz2api/gateway/internal/gateway"
	"gembiz2api/gateway/internal/gateway/claude"
	"gembiz2api/gateway/internal/gateway/gemini"
	"gembiz2api/gateway/internal/gateway/manager"
	"gembiz2api/gateway/internal/gateway/openai"
	"gembiz2api/gateway/internal/logger"
	"gembiz2api/gateway/internal/token"
	"gembiz2api/gateway/internal/upstream"
)

func main() {
	cfg := config.Get()
	logger.Init(cfg.Debug)

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	source := token.NewHTTPSecretSource(cfg.AuthBaseURL, newAuthHTTPClient(cfg.Proxy))
	pool := account.NewPool(source, account.DefaultSettings())

	defs, settings, err := config.LoadAccounts(cfg.AccountsFile)
	if err != nil {
		logger.Error("load accounts from %s: %v", cfg.AccountsFile, err)
		os.Exit(1)
	}
	result, err := pool.Apply(defs, settings)
	if err != nil {
		logger.Error("apply accounts: %v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d account(s) from %s", result.Added, cfg.AccountsFile)
	pool.WarnExpiring()

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.Proxy, timeout)
	reloader := config.NewReloader(cfg.AccountsFile, pool, cfg.ReloadInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reloader.Start(ctx)

	// SIGHUP forces a reload without waiting for the file watcher tick.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := reloader.ReloadNow(); err != nil {
				logger.Error("reload on SIGHUP: %v", err)
			}
		}
	}()

	handlers := gateway.Handlers{
		OpenAI:  openai.NewHandler(pool, client, cfg.RetryMaxAttempts),
		Claude:  claude.NewHandler(pool, client, cfg.RetryMaxAttempts),
		Gemini:  gemini.NewHandler(pool, client, cfg.RetryMaxAttempts),
		Manager: manager.NewHandler(pool, reloader),
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           gateway.NewRouter(handlers),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       90 * time.Second,
	}

	logger.Banner(cfg.Host, cfg.Port, pool.Stats().Total, cfg.APIKey != "")
	logger.Info("Server listening on %s", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}
	logger.Info("Server stopped")
}

// newAuthHTTPClient serves the signing-secret fetches, which are small
// and latency sensitive, so it carries a short fixed timeout.
func newAuthHTTPClient(proxy string) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}
