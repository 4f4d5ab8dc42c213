package main

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-pos-sync/config"
	"github.com/fekuna/omnipos-pos-sync/internal/broker"
	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/metrics"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/fekuna/omnipos-pos-sync/internal/schedule"
	"github.com/fekuna/omnipos-pos-sync/internal/search"

	catRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/category/repository"
	invRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/inventory/repository"
	merchRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/merchant/repository"
	ordRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/order/repository"
	prodRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-pos-sync/internal/product/usecase"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Database
	db, err := database.NewPostgres(&database.PostgresConfig{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	// 4. Redis, Kafka, Elasticsearch
	redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SyncEventsTopic)
	defer producer.Close()

	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, synced products will not be indexed", zap.Error(err))
		esClient = nil
	}

	// 5. Sync service
	reg := metrics.NewRegistry()
	remoteClient := remote.NewClient(remote.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Timeout:     cfg.Remote.Timeout,
		MaxAttempts: cfg.Remote.MaxAttempts,
		BaseDelay:   cfg.Remote.BaseDelay,
		MaxDelay:    cfg.Remote.MaxDelay,
		Jitter:      0.2,
	}, appLogger.With(zap.String("component", "remote")))
	remoteClient.OnRetry(reg.IncRetry)

	prodRepo := prodRepoPkg.NewPGRepository(db)
	merchRepo := merchRepoPkg.NewPGRepository(db)
	syncService := possync.NewService(possync.Deps{
		DB:         db,
		Merchants:  merchRepo,
		Categories: catRepoPkg.NewPGRepository(db),
		Products:   prodRepo,
		Inventory:  invRepoPkg.NewPGRepository(db),
		Orders:     ordRepoPkg.NewPGRepository(db),
		Remote:     remoteClient,
		Indexer:    prodUCPkg.NewProductUseCase(prodRepo, redisClient, esClient, appLogger),
		Events:     producer,
		Metrics:    reg,
		Logger:     appLogger.With(zap.String("component", "possync")),
	})

	// 6. Temporal worker
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Temporal", zap.Error(err))
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})
	schedule.Register(w, schedule.NewActivities(syncService, lock.NewRedisLocker(redisClient), schedule.ActivityConfig{
		Enabled:  cfg.Sync.Enabled,
		LockTTL:  cfg.Sync.LockTTL,
		PageSize: cfg.Remote.PageSize,
	}, appLogger.With(zap.String("component", "schedule"))))

	// 7. Interval dispatcher
	if cfg.Sync.AutoSyncInterval > 0 {
		dispatcher := schedule.NewDispatcher(temporalClient, merchRepo, schedule.DispatchConfig{
			TaskQueue: cfg.Temporal.TaskQueue,
			Interval:  cfg.Sync.AutoSyncInterval,
			Workers:   cfg.Sync.DispatchWorkers,
			Prune:     cfg.Sync.PruneOnAutoSync,
		}, appLogger.With(zap.String("component", "dispatcher")))
		go func() { _ = dispatcher.Run(ctx) }()
	}

	appLogger.Info("Starting Temporal worker", zap.String("task_queue", cfg.Temporal.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		appLogger.Fatal("worker stopped", zap.Error(err))
	}
	appLogger.Info("Worker stopped")
}
