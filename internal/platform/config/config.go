package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"clipcash"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	EnableOutboxRelay        bool `env:"ENABLE_OUTBOX_RELAY" envDefault:"true"`
	EnableLowBudgetCompleter bool `env:"ENABLE_LOW_BUDGET_COMPLETER" envDefault:"true"`
	EnableViewsConsumer      bool `env:"ENABLE_VIEWS_CONSUMER" envDefault:"true"`

	OutboxRelaySchedule string `env:"OUTBOX_RELAY_SCHEDULE" envDefault:"@every 5s"`
	CompleterSchedule   string `env:"LOW_BUDGET_COMPLETER_SCHEDULE" envDefault:"@every 1m"`

	CompleterBatchSize      int   `env:"LOW_BUDGET_COMPLETER_BATCH_SIZE" envDefault:"100"`
	CompletionViewThreshold int64 `env:"COMPLETION_VIEW_THRESHOLD" envDefault:"1000"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
