package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN              string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL              string `env:"RABBITMQ_URL,required=true"`
	RedisURL                 string `env:"REDIS_URL,required=true"`
	APIPort                  int    `env:"API_PORT,default=8080"`
	LogLevel                 string `env:"LOG_LEVEL,default=info"`
	ReconcileIntervalSeconds int    `env:"RECONCILE_INTERVAL_SECONDS,default=5"`
	CheckTimeoutSeconds      int    `env:"CHECK_TIMEOUT_SECONDS,default=10"`
	AppConcurrency           int    `env:"APP_CONCURRENCY,default=8"`
	LeaseTTLSeconds          int    `env:"LEASE_TTL_SECONDS,default=30"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
