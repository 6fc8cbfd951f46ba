package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP configuration
	HTTPAddr string

	// Kafka configuration; empty disables the event stream
	KafkaBrokers string

	// Redis configuration; empty disables the balance cache
	RedisAddr       string
	BalanceCacheTTL time.Duration

	// Environment: "development", "production" or "test"
	Environment string
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		BalanceCacheTTL: 30 * time.Second,
		Environment:     os.Getenv("ENVIRONMENT"),
	}

	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}
	if config.Environment == "" {
		config.Environment = "development"
	}
	if ttl := os.Getenv("BALANCE_CACHE_TTL_SECONDS"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil && parsed > 0 {
			config.BalanceCacheTTL = time.Duration(parsed) * time.Second
		}
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
