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

	"github.com/joho/godotenv"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cache"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/config"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	apphttp "github.com/alfonsusenrico/cash-flow-tracker/internal/http"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentApp})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// AMQP is optional; without it the services simply skip publishing.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	resolver := cycle.NewResolver(store)
	svc := apphttp.Services{
		Accounts:     services.NewAccountService(store),
		Transactions: services.NewTransactionService(store, amqpClient),
		Transfers:    services.NewTransferService(store, amqpClient),
		Ledger:       services.NewLedgerService(store, resolver),
		Budgets:      services.NewBudgetService(store, resolver, amqpClient, cfg.SuggestRoundIncrement),
		Payday:       services.NewPaydayService(store),
		Audit:        services.NewAuditService(store),
	}

	caches := cache.NewManager()
	caches.StartCleanup(10 * time.Minute)

	srv := apphttp.NewServer(cfg, svc, logger, caches)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		cancel()
	}()

	logger.Info("Starting cashflowd server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
