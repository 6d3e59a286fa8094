package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"newschain/internal/chain"
	"newschain/internal/config"
	"newschain/internal/db"
	"newschain/internal/event"
	"newschain/internal/httpapi"
	"newschain/internal/insights"
	"newschain/internal/logging"
	"newschain/internal/metrics"
	"newschain/internal/news"
	"newschain/internal/pinning"
)

func main() {
	// Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New("news-api", cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Mongo
	mongoClient, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	dbInstance := mongoClient.Database(cfg.MongoDBName)

	newsRepo, err := news.NewMongoRepository(ctx, dbInstance, logger.Named("repo"))
	if err != nil {
		logger.Fatal("failed to init repository", zap.Error(err))
	}
	logger.Info("news repository initialised", zap.String("db", cfg.MongoDBName))

	m := metrics.New()
	svcCfg := news.ServiceConfig{
		Gateway: cfg.PinataGatewayURL,
		Repo:    newsRepo,
		Metrics: m,
	}

	// Pinning
	pinner, err := pinning.FromConfig(cfg, &http.Client{Timeout: 2 * time.Minute}, logger.Named("pinning"))
	if err != nil {
		logger.Fatal("failed to init pinning client", zap.Error(err))
	}
	if pinner == nil {
		logger.Warn("pinning disabled, submissions will be rejected", zap.String("provider", cfg.PinningProvider))
	} else {
		svcCfg.Pinner = pinner
	}

	// Insights
	if cfg.InsightsEnabled {
		svcCfg.Analyzer = insights.NewClient(cfg.InsightsURL, cfg.InsightsTimeout, logger.Named("insights"))
		logger.Info("insights enabled", zap.String("url", cfg.InsightsURL))
	} else {
		logger.Warn("insights disabled, submissions are stored unclassified")
	}

	// Chain
	if cfg.ChainEnabled() {
		aptosClient, err := chain.NewAptosClient(cfg, logger.Named("chain"))
		if err != nil {
			logger.Fatal("failed to init aptos client", zap.Error(err))
		}
		svcCfg.Chain = aptosClient
		logger.Info("chain enabled", zap.String("network", cfg.AptosNetwork), zap.String("module", cfg.ModuleAddress))
	} else {
		logger.Warn("chain disabled, GET /news will be unavailable")
	}

	newsService := news.NewService(svcCfg, logger.Named("news"))

	// Event publisher (RabbitMQ)
	var publisher *event.RabbitPublisher
	if cfg.EventsEnabled {
		publisher, err = event.NewRabbitPublisher(
			cfg.RabbitURI,
			cfg.RabbitExchange,
			cfg.RabbitRoutingKey,
			logger.Named("events"),
		)
		if err != nil {
			logger.Fatal("failed to init rabbit publisher", zap.Error(err))
		}
		defer publisher.Close()

		eventsService := event.NewService(
			dbInstance.Collection(news.CollectionName),
			newsRepo,
			publisher,
			logger.Named("events"),
		)
		go eventsService.Run(ctx)
	}

	// HTTP server
	srv := serve(cfg, httpapi.NewRouter(httpapi.Deps{
		News:           newsService,
		Metrics:        m,
		Health:         mongoHealth(mongoClient),
		Logger:         logger.Named("http"),
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
	}), logger)

	logger.Info("service started")

	// Block until we receive a signal / ctx cancelled
	<-ctx.Done()
	logger.Info("shutdown signal received, shutting down...")

	// Unified shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Graceful Mongo shutdown
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error("mongo disconnect error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func serve(cfg config.Config, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return srv
}

func mongoHealth(client *mongo.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(ctx, readpref.Primary())
	}
}
