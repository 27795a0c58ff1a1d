package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"cms_mirror/internal/config"
	"cms_mirror/internal/publisher"
	"cms_mirror/internal/service"
	"cms_mirror/internal/source/cms"
	"cms_mirror/internal/storage/postgres"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *sqlx.DB
	redis     *redis.Client
	publisher *publisher.RabbitMQ

	upserter   *service.Upserter
	reconciler *service.Reconciler
	webhooks   *service.WebhookService
	reader     *service.Reader
}

func newApp(ctx context.Context) (*app, error) {
	logger := setupLogger("info")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = setupLogger(cfg.LogLevel)

	a := &app{cfg: cfg, logger: logger}

	a.db, err = sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		a.db.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	logger.Info("connected to database")

	// A nil *RabbitMQ must not reach the service as a non-nil interface.
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		a.publisher, err = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		pub = a.publisher
	}

	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	entityStore := postgres.NewEntityStore(a.db)
	tagStore := postgres.NewTagStore(a.db)
	syncStateStore := postgres.NewSyncStateStore(a.db)
	txManager := postgres.NewTransactionManager(a.db)

	source := cms.New(cms.Config{
		BaseURL:        cfg.CMS.BaseURL,
		Token:          cfg.CMS.Token,
		PageSize:       cfg.CMS.PageSize,
		Timeout:        cfg.CMS.Timeout,
		MaxAttempts:    cfg.CMS.Retry.MaxAttempts,
		InitialBackoff: cfg.CMS.Retry.InitialBackoff,
		MaxBackoff:     cfg.CMS.Retry.MaxBackoff,
	}, logger)

	collections := cfg.Collections.Map()

	a.upserter = service.NewUpserter(entityStore, tagStore, txManager, pub, logger)
	a.reconciler = service.NewReconciler(
		source,
		a.upserter,
		tagStore,
		syncStateStore,
		collections,
		cfg.Sync,
		logger,
	)
	a.webhooks = service.NewWebhookService(a.upserter, collections, logger)
	a.reader = service.NewReader(entityStore, tagStore, syncStateStore, source, collections, logger)

	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close publisher", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
