package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"betledger/api"
	"betledger/cache"
	"betledger/config"
	"betledger/database"
	"betledger/events"
	"betledger/repository"
	"betledger/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting betledger...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()

	// Attach the Kafka sink when brokers are configured. Without brokers the
	// bus still serves in-process subscribers.
	var kafkaSink *events.KafkaSink
	if cfg.KafkaBrokers != "" {
		log.Printf("Attaching Kafka sink (brokers: %s)...", cfg.KafkaBrokers)
		kafkaSink = events.NewKafkaSink(cfg.KafkaBrokers)
		kafkaSink.Attach(eventBus)
	}

	// Balance cache is optional. Without Redis every read goes to Postgres.
	var balanceCache service.BalanceCache = cache.NewNoopBalanceCache()
	if cfg.RedisAddr != "" {
		log.Printf("Connecting to Redis at %s...", cfg.RedisAddr)
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		balanceCache = cache.NewBalanceCache(rdb, cfg.BalanceCacheTTL)
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	bettingService := service.NewBettingService(uowFactory, balanceCache)
	balanceService := service.NewBalanceService(uowFactory, balanceCache)

	// Initialize HTTP server
	handler := api.NewHandler(bettingService, balanceService)
	server := api.NewServer(cfg.HTTPAddr, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Printf("Ledger is running in %s mode...", cfg.Environment)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Printf("Error closing Kafka sink: %v", err)
		}
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
