package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poison-machine/internal/config"
	"poison-machine/internal/logging"
	"poison-machine/internal/search"
	"poison-machine/internal/store"
	"poison-machine/internal/twitterapi"
	"poison-machine/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_web",
		"service", "poison-machine",
		"http_addr", cfg.HTTPAddr,
		"data_dir", cfg.DataDir,
		"api_key", logging.MaskKey(cfg.APIKey),
	)

	if !cfg.SearchEnabled() {
		logger.Warn("api_key_missing", "msg", "search routes will answer 503 until TWITTERAPI_IO_KEY is set")
	}
	if !cfg.GuestEnabled() {
		logger.Info("guest_role_disabled")
	}

	accounts := store.NewAccountStore(cfg.DataDir, logger)
	history := store.NewHistoryStore(cfg.DataDir, logger)
	cache := store.NewUserCacheStore(cfg.DataDir, logger)

	api := twitterapi.NewClient(cfg.APIBase, cfg.APIKey, logger)
	orch := search.NewOrchestrator(api, cache, history, logger)

	srv := web.NewServer(logger, cfg, accounts, history, cache, orch, api, "web/templates/*.html")

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("web_started", "addr", cfg.HTTPAddr)

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	logger.Info("web_stopped")
}
