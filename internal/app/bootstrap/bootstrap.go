package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	budgetledger "clipcash/contexts/finance-core/budget-ledger"
	postgresadapter "clipcash/contexts/finance-core/budget-ledger/adapters/postgres"
	"clipcash/contexts/finance-core/budget-ledger/application/commands"
	workerapp "clipcash/contexts/finance-core/budget-ledger/application/workers"
	"clipcash/internal/platform/config"
	"clipcash/internal/platform/db"
	"clipcash/internal/platform/httpserver"
	"clipcash/internal/platform/messaging"
	"clipcash/internal/platform/scheduler"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres          *db.Postgres
	relay             workerapp.OutboxRelay
	completer         workerapp.LowBudgetCompleter
	consumer          workerapp.ViewsUpdatedConsumer
	relaySchedule     string
	completerSchedule string
	relayEnabled      bool
	logger            *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := budgetledger.NewModule(budgetledger.Dependencies{
		Campaigns:   repo,
		Submissions: repo,
		Committer:   repo,
		History:     repo,
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	clock := postgresadapter.SystemClock{}
	idGen := postgresadapter.UUIDGenerator{}

	completeUseCase := commands.CompleteWithRefundUseCase{
		Campaigns: repo,
		Committer: repo,
		Clock:     clock,
		IDGen:     idGen,
		Logger:    logger,
	}
	updateUseCase := commands.UpdateForViewIncreaseUseCase{
		Campaigns:   repo,
		Submissions: repo,
		Committer:   repo,
		Clock:       clock,
		IDGen:       idGen,
		Logger:      logger,
	}

	return &WorkerApp{
		postgres: pg,
		relay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     clock,
			BatchSize: 100,
			Logger:    logger,
		},
		completer: workerapp.LowBudgetCompleter{
			Sweep:         repo,
			Complete:      completeUseCase,
			BatchSize:     cfg.CompleterBatchSize,
			ViewThreshold: cfg.CompletionViewThreshold,
			Disabled:      !cfg.EnableLowBudgetCompleter,
			Logger:        logger,
		},
		consumer: workerapp.ViewsUpdatedConsumer{
			Subscriber: kafka,
			Update:     updateUseCase,
			Dedup:      repo,
			Clock:      clock,
			DedupTTL:   7 * 24 * time.Hour,
			Disabled:   !cfg.EnableViewsConsumer,
			Logger:     logger,
		},
		relaySchedule:     cfg.OutboxRelaySchedule,
		completerSchedule: cfg.CompleterSchedule,
		relayEnabled:      cfg.EnableOutboxRelay,
		logger:            logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}

	relaySchedule := w.relaySchedule
	if !w.relayEnabled {
		relaySchedule = ""
	}

	jobs := scheduler.New(ctx, w.relay, w.completer, w.logger)
	if err := jobs.RegisterAll(relaySchedule, w.completerSchedule); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	<-ctx.Done()
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
