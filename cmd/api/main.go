// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"instatrends/internal/adapter/storage"
	"instatrends/internal/config"
	"instatrends/internal/domain/trend"
	"instatrends/internal/server"
	"instatrends/internal/service/ai"
	"instatrends/internal/service/analyzer"
	"instatrends/internal/service/instagram"
	"instatrends/internal/service/refresher"
	"instatrends/internal/service/trends"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store := storage.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()

	trendSource, err := initTrendSource(cfg.Trends, logger)
	if err != nil {
		logger.Fatal("failed to initialize trend source", zap.Error(err))
	}
	logger.Info("trend source selected", zap.String("source", trendSource.Name()))

	aiClient := ai.NewClient(ai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		Model:          cfg.OpenAI.Model,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		Temperature:    cfg.OpenAI.Temperature,
		MaxAttempts:    cfg.OpenAI.MaxAttempts,
		RetryBaseWait:  cfg.OpenAI.RetryBaseWait,
		RequestTimeout: cfg.OpenAI.RequestTimeout,
	}, logger.Named("ai"))

	scraper := instagram.NewScraper(instagram.Config{
		BaseURL:        cfg.Instagram.BaseURL,
		AppID:          cfg.Instagram.AppID,
		UserAgent:      cfg.Instagram.UserAgent,
		RequestTimeout: cfg.Instagram.RequestTimeout,
	}, logger.Named("instagram"))

	pipeline := analyzer.New(scraper, aiClient, trendSource, store, natsConn, analyzer.Config{
		TopMatches:      cfg.Trends.TopMatches,
		TrendFetchLimit: cfg.Trends.FetchLimit,
		FreshnessWindow: cfg.Trends.FreshnessWindow,
		MaxPosts:        cfg.Trends.MaxPostsPerProfile,
		AnalysisTopic:   cfg.NATS.AnalysisTopic,
	}, logger.Named("analyzer"))

	trendRefresher := refresher.New(trendSource, store, natsConn, refresher.Config{
		Interval:   cfg.Trends.RefreshInterval,
		MinSpacing: cfg.Trends.MinRefreshSpacing,
		Topic:      cfg.NATS.TrendsTopic,
	}, logger.Named("refresher"))

	if err := trendRefresher.Start(ctx); err != nil {
		logger.Fatal("failed to start refresher", zap.Error(err))
	}

	httpServer := server.NewServer(cfg.Server, server.Deps{
		Service:   pipeline,
		DB:        store,
		NATS:      natsConn,
		Refresher: trendRefresher,
		Source:    trendSource.Name(),
		WSTopic:   cfg.NATS.TrendsTopic,
		Logger:    logger.Named("http"),
	})

	go func() {
		logger.Info("starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := trendRefresher.Stop(shutdownCtx); err != nil {
		logger.Warn("refresher shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initDatabase connects the pgx pool.
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// initNATS connects the event bus.
func initNATS(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// initTrendSource builds the configured trend source variant.
func initTrendSource(cfg config.TrendsConfig, logger *zap.Logger) (trend.Source, error) {
	switch cfg.Source {
	case "twitter":
		return trends.NewTwitterSource(trends.TwitterConfig{
			BearerToken:  cfg.TwitterBearerToken,
			SeedHashtags: cfg.SeedHashtags,
		}, logger.Named("trends"))
	default:
		return trends.NewStaticSource(cfg.StaticDataPath)
	}
}
