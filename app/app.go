package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"marketflow/api"
	"marketflow/broadcast"
	"marketflow/cache"
	"marketflow/config"
	"marketflow/database"
	"marketflow/database/bars"
	"marketflow/database/eod"
	"marketflow/database/stocks"
	"marketflow/database/trades"
	"marketflow/eodfetch"
	"marketflow/helpers"
	"marketflow/ingest"
	"marketflow/kafka"
	"marketflow/persist"
	"marketflow/query"
	"marketflow/websocket"
)

// App represents the main application
type App struct {
	config *config.Config

	db       *database.Database
	redis    *cache.RedisClient
	producer *kafka.Producer

	persistConsumer   *kafka.Consumer
	broadcastConsumer *kafka.Consumer

	apiServer *api.Server
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
	}
}

// Start wires every component and blocks until an interrupt or a fatal
// worker error.
func (a *App) Start() error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database Connection. The database may still be starting alongside
	// this process, so the first connect retries with backoff.
	fmt.Println("🗄️  Connecting to database...")
	var db *database.Database
	err := helpers.Retry(ctx, 5, 2*time.Second, func() error {
		var cerr error
		db, cerr = database.Connect(
			a.config.DatabaseHost,
			a.config.DatabasePort,
			a.config.DatabaseName,
			a.config.DatabaseUser,
			a.config.DatabasePassword,
		)
		return cerr
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	stockRepo := stocks.NewRepository(a.db.DB())
	tradeRepo := trades.NewRepository(a.db.DB())
	barRepo := bars.NewRepository(a.db.DB())
	eodRepo := eod.NewRepository(a.db.DB())

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching and broadcast disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Kafka Producer
	fmt.Println("📦 Connecting to Kafka...")
	producer, err := kafka.NewProducer(a.config.KafkaBootstrapServers)
	if err != nil {
		return fmt.Errorf("kafka producer setup failed: %w", err)
	}
	a.producer = producer

	// 4. Consumers: persistence commits offsets only after the row is down,
	// broadcast rides the group's auto commit.
	a.persistConsumer, err = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    a.config.KafkaBootstrapServers,
		Group:      kafka.GroupPersistence,
		Topics:     []string{kafka.TopicTrades, kafka.TopicBars},
		AutoCommit: a.config.KafkaEnableAutoCommit,
	})
	if err != nil {
		return fmt.Errorf("persistence consumer setup failed: %w", err)
	}

	if a.redis != nil {
		a.broadcastConsumer, err = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:    a.config.KafkaBootstrapServers,
			Group:      kafka.GroupBroadcast,
			Topics:     []string{kafka.TopicTrades, kafka.TopicBars},
			AutoCommit: true,
		})
		if err != nil {
			return fmt.Errorf("broadcast consumer setup failed: %w", err)
		}
	}

	// 5. Workers
	var wg sync.WaitGroup
	fatalErr := make(chan error, 1)

	wsClient := websocket.NewClient(a.config.AlpacaWSURL, a.config.AlpacaAPIKey, a.config.AlpacaSecretKey)
	ingestWorker := ingest.NewWorker(wsClient, a.producer, a.config.StreamSymbols)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A rejected credential never heals on retry; surface it and exit.
		if err := ingestWorker.Run(ctx); err != nil {
			select {
			case fatalErr <- fmt.Errorf("ingest worker: %w", err):
			default:
			}
		}
	}()

	persistWorker := persist.NewWorker(a.persistConsumer, tradeRepo, barRepo)
	wg.Add(1)
	go func() {
		defer wg.Done()
		persistWorker.Run(ctx)
	}()

	if a.broadcastConsumer != nil {
		broadcastWorker := broadcast.NewWorker(a.broadcastConsumer, a.redis, a.config.RedisStreamMaxLen)
		wg.Add(1)
		go func() {
			defer wg.Done()
			broadcastWorker.Run(ctx)
		}()
	}

	// 6. Query layer and API Server
	backfill := eodfetch.NewService(a.config.AlpacaBaseURL, a.config.AlpacaAPIKey, a.config.AlpacaSecretKey, eodRepo)
	queries := query.NewService(stockRepo, tradeRepo, barRepo, eodRepo, a.redis, backfill)
	a.apiServer = api.NewServer(queries, a.config.AllowedOrigins)
	go func() {
		if err := a.apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 7. Wait for interrupt or a fatal worker error, then shut down
	err = a.gracefulShutdown(cancel, fatalErr)
	wg.Wait()
	return err
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc, fatalErr <-chan error) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-interrupt:
		fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")
	case runErr = <-fatalErr:
		log.Printf("🛑 Fatal worker error, initiating shutdown: %v", runErr)
	}

	// Cancel context to stop all goroutines
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		if a.apiServer != nil {
			fmt.Println("🚪 Draining API server...")
			if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down API server: %v", err)
			}
		}

		if a.producer != nil {
			fmt.Println("📦 Flushing Kafka producer...")
			a.producer.Close()
		}

		if a.persistConsumer != nil {
			a.persistConsumer.Close()
		}
		if a.broadcastConsumer != nil {
			a.broadcastConsumer.Close()
		}

		// Close database connection
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		// Close Redis connection
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return runErr
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
