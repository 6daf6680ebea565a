package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warscope-bot/internal/analytics"
	"warscope-bot/internal/assistant"
	"warscope-bot/internal/audit"
	"warscope-bot/internal/bot"
	"warscope-bot/internal/config"
	"warscope-bot/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var store *storage.Store
	if cfg.Storage.DatabaseURL != "" {
		initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		store, err = storage.New(initCtx, cfg.Storage.DatabaseURL)
		if err != nil {
			cancel()
			logger.Fatal("storage init failed", zap.Error(err))
		}
		if err := store.Migrate(initCtx); err != nil {
			cancel()
			logger.Fatal("migrations failed", zap.Error(err))
		}
		cancel()
		defer store.Close()
	} else {
		logger.Info("storage disabled, audit trail kept in logs only")
	}

	auditLogger := audit.NewLogger(store, logger)
	analyticsService := analytics.New(store)

	provider, err := assistant.New(cfg.Assistant)
	if err != nil {
		logger.Warn("assistant disabled", zap.String("provider", cfg.Assistant.Provider), zap.Error(err))
	}

	botSvc, err := bot.New(cfg, logger, store, auditLogger, analyticsService, provider)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("guild_id", cfg.GuildID), zap.String("provider", cfg.Assistant.Provider))

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
