package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-pos-sync/config"
	"github.com/fekuna/omnipos-pos-sync/internal/auth"
	"github.com/fekuna/omnipos-pos-sync/internal/broker"
	"github.com/fekuna/omnipos-pos-sync/internal/cache"
	"github.com/fekuna/omnipos-pos-sync/internal/database"
	"github.com/fekuna/omnipos-pos-sync/internal/healthcheck"
	"github.com/fekuna/omnipos-pos-sync/internal/httpx"
	"github.com/fekuna/omnipos-pos-sync/internal/lock"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"github.com/fekuna/omnipos-pos-sync/internal/metrics"
	"github.com/fekuna/omnipos-pos-sync/internal/possync"
	"github.com/fekuna/omnipos-pos-sync/internal/remote"
	"github.com/fekuna/omnipos-pos-sync/internal/search"

	catH "github.com/fekuna/omnipos-pos-sync/internal/category/handler"
	catRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-pos-sync/internal/category/usecase"

	invH "github.com/fekuna/omnipos-pos-sync/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-pos-sync/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-pos-sync/internal/inventory/usecase"

	merchH "github.com/fekuna/omnipos-pos-sync/internal/merchant/handler"
	merchRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/merchant/repository"
	merchUCPkg "github.com/fekuna/omnipos-pos-sync/internal/merchant/usecase"

	ordH "github.com/fekuna/omnipos-pos-sync/internal/order/handler"
	ordRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/order/repository"
	ordUCPkg "github.com/fekuna/omnipos-pos-sync/internal/order/usecase"

	prodH "github.com/fekuna/omnipos-pos-sync/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-pos-sync/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-pos-sync/internal/product/usecase"

	syncH "github.com/fekuna/omnipos-pos-sync/internal/possync/handler"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
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
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			appLogger.Fatal("Could not migrate database", zap.Error(err))
		}
	}

	// 4. Initialize Repositories
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	ordRepo := ordRepoPkg.NewPGRepository(db)
	merchRepo := merchRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(ctx, &cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SyncEventsTopic)
	defer producer.Close()
	consumer := broker.NewConsumer(&broker.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.InventoryTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer consumer.Close()
	appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers))

	// 5.8 Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, search falls back to the database", zap.Error(err))
		esClient = nil
	}

	// 5.9 Remote POS client and metrics
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

	// 6. Initialize UseCases
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, redisClient, esClient, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, redisClient, appLogger)
	ordUC := ordUCPkg.NewOrderUseCase(ordRepo, appLogger)
	merchUC := merchUCPkg.NewMerchantUseCase(merchRepo, remoteClient, appLogger)

	syncService := possync.NewService(possync.Deps{
		DB:         db,
		Merchants:  merchRepo,
		Categories: catRepo,
		Products:   prodRepo,
		Inventory:  invRepo,
		Orders:     ordRepo,
		Remote:     remoteClient,
		Indexer:    prodUC,
		Events:     producer,
		Metrics:    reg,
		Logger:     appLogger.With(zap.String("component", "possync")),
	})

	// 6.5 Start Listener
	invListener := invListenerPkg.NewInventoryListener(consumer, invUC, appLogger)
	go invListener.Start(ctx)

	// 7. HTTP Router
	r := httpx.NewRouter(appLogger)
	r.Handle("/metrics", reg.Handler())
	merchH.NewMerchantHandler(merchUC, appLogger).Register(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireMerchant)
		catH.NewCategoryHandler(catUC, appLogger).Register(r)
		prodH.NewProductHandler(prodUC, appLogger).Register(r)
		invH.NewInventoryHandler(invUC, appLogger).Register(r)
		ordH.NewOrderHandler(ordUC, appLogger).Register(r)
		syncH.NewSyncHandler(syncService, lock.NewRedisLocker(redisClient), syncH.Config{
			Enabled:  cfg.Sync.Enabled,
			LockTTL:  cfg.Sync.LockTTL,
			PageSize: cfg.Remote.PageSize,
		}, appLogger).Register(r)
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPPort,
		Handler:           otelhttp.NewHandler(r, "possync-http"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 8. gRPC health
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	monitor := healthcheck.NewMonitor(db, 10*time.Second, appLogger)
	go monitor.Run(ctx)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, monitor.Server())
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
