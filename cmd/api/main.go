// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stagemap/internal/adapter/bus"
	"stagemap/internal/adapter/cache"
	"stagemap/internal/adapter/storage"
	"stagemap/internal/config"
	"stagemap/internal/logging"
	"stagemap/internal/server"
	"stagemap/internal/server/handlers"
	eventService "stagemap/internal/service/event"
	geoService "stagemap/internal/service/geo"
	identityService "stagemap/internal/service/identity"
	scheduleService "stagemap/internal/service/schedule"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	natsConn, err := bus.Connect(bus.Config{
		URL:            cfg.NATS.URL,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectTimeout: cfg.NATS.ConnectTimeout,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()
	natsBus := bus.NewNATSBus(natsConn, cfg.NATS.SubjectPrefix, logger)

	loc, err := cfg.Schedule.Location()
	if err != nil {
		logger.Fatal("Failed to load display timezone", zap.Error(err))
	}

	// Initialize storage adapters
	categoryStore := storage.NewCategoryStore(db)
	eventStore := storage.NewEventStore(db)
	userStore := storage.NewUserStore(db)
	stageStore := storage.NewStageStore(db, storage.StageStoreConfig{
		MaxRetries:   cfg.Schedule.WriteRetries,
		RetryBackoff: cfg.Schedule.RetryBackoff,
	})

	if inserted, err := categoryStore.EnsureDefaults(ctx); err != nil {
		logger.Fatal("Failed to ensure default categories", zap.Error(err))
	} else if inserted > 0 {
		logger.Info("Inserted default categories", zap.Int("count", inserted))
	}

	var events eventService.EventStore = eventStore
	var listingCache *cache.CachedEventRepository
	if cfg.Redis.Enabled {
		redisClient, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, serving listings without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			listingCache = cache.NewCachedEventRepository(eventStore, redisClient, cfg.Redis.ListTTL, logger)
			events = listingCache
		}
	}

	// Initialize services
	proximity := geoService.NewProximityService(geoService.ProximityConfig{
		DefaultRadius: cfg.Geo.DefaultRadius,
		MaxRadius:     cfg.Geo.MaxRadius,
	})

	eventManager := eventService.NewEventManager(events, categoryStore, proximity, natsBus, logger)

	scheduleManager := scheduleService.NewScheduleManager(stageStore, eventStore, natsBus, logger, scheduleService.ScheduleManagerConfig{
		Location:     loc,
		CalendarName: cfg.Schedule.CalendarName,
	})

	userService := identityService.NewUserService(
		userStore,
		eventStore,
		identityService.NewJWTTokenManager(cfg.Identity.TokenSecret),
		logger,
		identityService.UserServiceConfig{TokenExpiry: cfg.Identity.TokenExpiry},
	)
	if listingCache != nil {
		userService.WithInvalidator(listingCache)
	}

	wsConfig := handlers.DefaultWebSocketConfig()
	wsConfig.RefreshInterval = cfg.Schedule.RefreshInterval

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, server.Services{
		Events:     eventManager,
		Queries:    proximity,
		Stages:     scheduleManager,
		Users:      userService,
		Auth:       userService,
		Subscriber: natsBus,
		Location:   loc,
		WebSocket:  wsConfig,
		Ready:      db.Ping,
	}, logger)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr()), zap.String("env", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Flush pending notifications before the deferred close
	if err := natsConn.FlushWithContext(shutdownCtx); err != nil {
		logger.Warn("NATS flush error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize redis connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return client, nil
}
