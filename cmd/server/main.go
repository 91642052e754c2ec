package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/styleguard/styleguard/internal/config"
	"github.com/styleguard/styleguard/internal/db"
	"github.com/styleguard/styleguard/internal/events"
	"github.com/styleguard/styleguard/internal/handlers"
	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/ollama"
	"github.com/styleguard/styleguard/internal/repo"
	"github.com/styleguard/styleguard/internal/search"
	"github.com/styleguard/styleguard/internal/service"
	"github.com/styleguard/styleguard/internal/tokens"
	httpserver "github.com/styleguard/styleguard/internal/transport/http"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg := config.MustLoad()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	store := repo.New(gdb)

	ts, err := tokens.NewService([]byte(cfg.SecretKey), cfg.Algorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("token_service_init_failed", "error", err)
		os.Exit(1)
	}

	var prod publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod = events.NewProducer(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	model := ollama.NewClient(ollama.ClientConfig{
		URL:         cfg.OllamaURL,
		Model:       cfg.ModelName,
		Temperature: cfg.ModelTemperature,
		Timeout:     cfg.ModelTimeout,
	})

	authSvc := &service.AuthService{Users: store, Tokens: ts, Events: prod, BcryptCost: cfg.BcryptCost}
	corrSvc := &service.CorrectionService{
		Store:     store,
		Corrector: &service.Corrector{Model: model, Timeout: cfg.ModelTimeout},
		Events:    prod,
	}

	if cfg.ESURL != "" {
		idx, err := search.NewClient(search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		if err == nil {
			err = idx.EnsureIndex(ctx)
		}
		if err != nil {
			logger.Warn("search_disabled", "url", cfg.ESURL, "error", err)
		} else {
			corrSvc.Index = idx
			logger.Info("search_enabled", "url", cfg.ESURL, "index", cfg.ESIndex)
		}
	}

	e := httpserver.New(&httpserver.Deps{
		Logger:            logger,
		AuthHandler:       &handlers.AuthHandler{Svc: authSvc},
		CorrectionHandler: &handlers.CorrectionHandler{Svc: corrSvc},
		StatusHandler:     &handlers.StatusHandler{DB: store},
		Users:             authSvc,
		AuthRateLimit:     cfg.AuthRateLimit,
		AuthRateBurst:     cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ModelTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_listening", "addr", cfg.HTTPAddr, "model", cfg.ModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
