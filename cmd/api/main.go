package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/config"
	"github.com/greenmarket/catalog-service/pkg/broker"
	"github.com/greenmarket/catalog-service/pkg/cache"
	"github.com/greenmarket/catalog-service/pkg/database/postgres"
	"github.com/greenmarket/catalog-service/pkg/logger"
	"github.com/greenmarket/catalog-service/pkg/search"

	catH "github.com/greenmarket/catalog-service/internal/catalog/handler"
	catIndexerPkg "github.com/greenmarket/catalog-service/internal/catalog/indexer"
	catListenerPkg "github.com/greenmarket/catalog-service/internal/catalog/listener"
	catRepoPkg "github.com/greenmarket/catalog-service/internal/catalog/repository"
	catSearch "github.com/greenmarket/catalog-service/internal/catalog/search"
	catUCPkg "github.com/greenmarket/catalog-service/internal/catalog/usecase"

	"github.com/greenmarket/catalog-service/internal/price/feed"
	priceH "github.com/greenmarket/catalog-service/internal/price/handler"
	"github.com/greenmarket/catalog-service/internal/price/match"
	priceRepoPkg "github.com/greenmarket/catalog-service/internal/price/repository"
	"github.com/greenmarket/catalog-service/internal/price/syncer"
	priceUCPkg "github.com/greenmarket/catalog-service/internal/price/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
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

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Fatal("Could not initialize Elasticsearch client", zap.Error(err))
	}
	appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))

	// 6. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Catalog domain
	catRepo := catRepoPkg.NewPGRepository(db)
	engine := catSearch.NewEngine(esClient, appLogger)
	ix := catIndexerPkg.NewIndexer(esClient, catRepo, appLogger)
	ix.EnsureIndex(ctx)
	catUC := catUCPkg.NewCatalogUseCase(catRepo, redisClient, engine, ix, appLogger)

	catListener := catListenerPkg.NewCatalogListener(kafkaConsumer, engine, appLogger)
	go catListener.Start(ctx)

	// 8. Price intelligence domain
	historyPool := match.NewHistoryPool(cfg.Price.HistoryCSVPath, appLogger)
	if err := historyPool.Load(); err != nil {
		appLogger.Warn("Could not load price history CSV, name matching degraded", zap.Error(err))
	} else {
		appLogger.Info("Loaded price history", zap.Int("records", historyPool.Size()))
	}

	fixtures, err := priceUCPkg.LoadFixtures(cfg.Price.FixturesPath)
	if err != nil {
		appLogger.Fatal("Could not load price fixtures", zap.Error(err))
	}
	if fixtures != nil {
		appLogger.Info("Price fixtures enabled", zap.String("path", cfg.Price.FixturesPath))
	}

	priceRepo := priceRepoPkg.NewPGRepository(db)
	feedClient := feed.NewClient(feed.Config{
		BaseURL:    cfg.Feed.BaseURL,
		AccessKey:  cfg.Feed.AccessKey,
		MarketCode: cfg.Feed.MarketCode,
		PageSize:   cfg.Feed.PageSize,
		Timeout:    time.Duration(cfg.Feed.TimeoutSec) * time.Second,
		RetryCount: cfg.Feed.RetryCount,
	}, appLogger)

	priceSyncer := syncer.New(feedClient, priceRepo, appLogger, cfg.Price.SyncHour)
	go priceSyncer.Run(ctx)

	priceUC := priceUCPkg.NewPriceUseCase(priceRepo, redisClient, historyPool, fixtures, appLogger)

	// 9. HTTP server
	if cfg.Server.AppEnv != "dev" && cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	catH.NewCatalogHandler(catUC, appLogger).SetupRoutes(api)
	priceH.NewPriceHandler(priceUC, priceSyncer, appLogger).SetupRoutes(api)

	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
