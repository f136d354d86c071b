package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/sessionpulse/internal/config"
	"github.com/prudhvinik1/sessionpulse/internal/database"
	"github.com/prudhvinik1/sessionpulse/internal/events"
	"github.com/prudhvinik1/sessionpulse/internal/handlers"
	"github.com/prudhvinik1/sessionpulse/internal/logger"
	"github.com/prudhvinik1/sessionpulse/internal/repositories"
	"github.com/prudhvinik1/sessionpulse/internal/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		// logger config comes from the same env, so fall back to defaults
		logger.Init(true, "info", "json")
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.Init(cfg.IsProduction(), cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	sessionRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to session store",
			zap.String("driver", cfg.StoreDriver),
			zap.Error(err),
		)
	}
	defer closeStore()
	log.Info("Connected to session store", zap.String("driver", cfg.StoreDriver))

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		log.Info("Publishing heartbeats to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Failed to close publisher", zap.Error(err))
		}
	}()

	heartbeatService := services.NewHeartbeatService(sessionRepo, publisher, log, services.HeartbeatOptions{
		Retention:        cfg.SessionRetention,
		SweepOnPing:      cfg.SweepOnPing,
		DetectDeviceType: cfg.DetectDeviceType,
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := services.NewSweeper(sessionRepo, cfg.SessionRetention, cfg.SweepInterval, log)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(sweepCtx)
	}()

	router := handlers.NewRouter(
		handlers.NewPingHandler(heartbeatService, log),
		handlers.NewHealthHandler(heartbeatService, log),
		log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", server.Addr), zap.Error(err))
	}

	signalCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	log.Info("Starting server", zap.String("port", cfg.ServerPort))
	if err := serve(signalCtx, server, listener, shutdownTimeout, log); err != nil {
		log.Error("Server error", zap.Error(err))
	}

	// the store and publisher are closed by the deferred calls above, after
	// in-flight requests have drained
	stopSweeper()
	<-sweeperDone
	log.Info("Server stopped gracefully")
}

// serve runs server on listener until ctx is cancelled, then waits up to
// timeout for in-flight requests to finish before returning.
func serve(ctx context.Context, server *http.Server, listener net.Listener, timeout time.Duration, log *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown returns once every active connection is idle or the timeout hits
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// openStore connects the configured backend and returns its cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (repositories.SessionRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := database.NewMongoClient(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := repositories.NewMongoSessionRepository(
			client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil

	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateUp(pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repositories.NewPostgresSessionRepository(pool), pool.Close, nil

	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisSessionRepository(client), func() { _ = client.Close() }, nil

	case config.StoreMemory:
		return repositories.NewMemorySessionRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
