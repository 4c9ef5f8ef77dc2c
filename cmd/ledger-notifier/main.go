package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/config"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
)

// ledger-notifier consumes ledger events and logs them in a structured
// form, as a hook point for downstream notification fan-out.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting ledger-notifier")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for ledger-notifier")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	handler := func(event *amqp.LedgerEvent) error {
		logger.Info("Ledger event received",
			log.FieldEventKind, event.Kind,
			log.FieldUsername, event.Username,
			"entity_id", event.EntityID,
			log.FieldTransferID, event.TransferID,
			"timestamp", event.Timestamp)
		return nil
	}

	if err := amqpClient.ConsumeLedgerEvents(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("ledger-notifier stopped gracefully")
}
