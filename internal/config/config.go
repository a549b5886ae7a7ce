// Package config содержит логику чтения конфигурации сервиса маркетплейса.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Значения по умолчанию.
const (
	DefaultRunAddress        = "localhost:8080"
	DefaultOrdersQueue       = "orders.placed"
	DefaultReconcileInterval = 30 * time.Second
	DefaultCatalogCacheTTL   = 60 * time.Second
)

// Config содержит параметры конфигурации сервиса маркетплейса.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	IdentityURL       string        `env:"IDENTITY_URL"`
	IdentityAPIKey    string        `env:"IDENTITY_API_KEY"`
	AuthSecret        string        `env:"AUTH_SECRET"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	AMQPURL           string        `env:"AMQP_URL"`
	OrdersQueue       string        `env:"ORDERS_QUEUE"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
	CatalogCacheTTL   time.Duration `env:"CATALOG_CACHE_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	fromEnv := Config{}
	if err := env.Parse(&fromEnv); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.IdentityURL, "i", "", "identity service base URL")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for locally signed tokens")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address for catalog cache")
	flag.StringVar(&cfg.AMQPURL, "amqp", "", "rabbitmq URL for order events")
	flag.StringVar(&cfg.OrdersQueue, "queue", DefaultOrdersQueue, "queue for order events")
	flag.DurationVar(&cfg.ReconcileInterval, "reconcile", DefaultReconcileInterval, "points reconciler interval, 0 disables")
	flag.DurationVar(&cfg.CatalogCacheTTL, "cache-ttl", DefaultCatalogCacheTTL, "catalog cache TTL")

	flag.Parse()

	override(&cfg.RunAddress, fromEnv.RunAddress)
	override(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	override(&cfg.IdentityURL, fromEnv.IdentityURL)
	override(&cfg.IdentityAPIKey, fromEnv.IdentityAPIKey)
	override(&cfg.AuthSecret, fromEnv.AuthSecret)
	override(&cfg.RedisAddr, fromEnv.RedisAddr)
	override(&cfg.AMQPURL, fromEnv.AMQPURL)
	override(&cfg.OrdersQueue, fromEnv.OrdersQueue)
	override(&cfg.ReconcileInterval, fromEnv.ReconcileInterval)
	override(&cfg.CatalogCacheTTL, fromEnv.CatalogCacheTTL)

	if cfg.RunAddress == "" {
		cfg.RunAddress = DefaultRunAddress
	}
	if cfg.OrdersQueue == "" {
		cfg.OrdersQueue = DefaultOrdersQueue
	}
	if cfg.CatalogCacheTTL <= 0 {
		cfg.CatalogCacheTTL = DefaultCatalogCacheTTL
	}

	return cfg, nil
}

func override[T comparable](dst *T, envValue T) {
	var zero T
	if envValue != zero {
		*dst = envValue
	}
}
