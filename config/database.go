package config

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-api/repository"
)

// OpenStore connects to the configured backend, retrying with exponential
// backoff until it succeeds, MaxElapsed passes or ctx is cancelled. Schema
// migration or index creation runs once the connection is up.
func OpenStore(ctx context.Context, cfg DatabaseConfig, lg *zap.Logger) (*repository.Store, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = cfg.MaxElapsed

	var store *repository.Store
	connect := func() error {
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	notify := func(err error, next time.Duration) {
		lg.Warn("Store unavailable, retrying",
			zap.String("driver", cfg.Driver),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, errors.Wrap(err, "connect store")
	}

	lg.Info("Store connected", zap.String("driver", cfg.Driver))
	return store, nil
}

func openStore(ctx context.Context, cfg DatabaseConfig) (*repository.Store, error) {
	switch cfg.Driver {
	case "mongo":
		return openMongo(ctx, cfg)
	case "postgres":
		return openGorm(ctx, postgres.Open(cfg.DSN))
	default:
		return openGorm(ctx, sqlite.Open(cfg.DSN))
	}
}

func openGorm(ctx context.Context, dialector gorm.Dialector) (*repository.Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	store := repository.NewGormStore(db)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, errors.Wrap(err, "ping database")
	}
	if err := repository.Migrate(db.WithContext(ctx)); err != nil {
		_ = store.Close(ctx)
		return nil, errors.Wrap(err, "migrate database")
	}
	return store, nil
}

func openMongo(ctx context.Context, cfg DatabaseConfig) (*repository.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}
	if err := repository.EnsureMongoIndexes(ctx, client, cfg.Name); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repository.NewMongoStore(client, cfg.Name), nil
}
