// Package bootstrap builds the repositories and model selected by config so
// every binary starts the same way.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loanwise/platform/internal/classifier"
	"github.com/loanwise/platform/internal/config"
	"github.com/loanwise/platform/internal/database"
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/domain/users"
	"github.com/loanwise/platform/internal/storage/memory"
	"github.com/loanwise/platform/internal/storage/sqlstore"
)

// Repositories are the persistence ports handed to the domain container.
type Repositories struct {
	Users       users.Repository
	Predictions predictions.Repository
}

// OpenRepositories connects the configured backend and applies migrations.
// The returned close function releases the connection, if any.
func OpenRepositories(ctx context.Context, cfg config.Config, logr *slog.Logger) (Repositories, func() error, error) {
	noop := func() error { return nil }

	opts := database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		Logger:          logr,
	}

	switch cfg.DataBackend {
	case config.BackendMemory:
		logr.Info("using in-memory repositories (DATA_BACKEND=memory)")
		userRepo := memory.NewUserRepository()
		return Repositories{
			Users:       userRepo,
			Predictions: memory.NewPredictionRepository().WithUsers(userRepo),
		}, noop, nil
	case config.BackendPostgres:
		opts.Driver = cfg.DatabaseDriver
		opts.DSN = cfg.DatabaseURL
	case config.BackendSQLite:
		dsn, err := database.SQLiteDSN(cfg.SQLitePath)
		if err != nil {
			return Repositories{}, noop, err
		}
		opts.Driver = "sqlite"
		opts.DSN = dsn
		// SQLite allows a single writer.
		opts.MaxOpenConns = 1
	default:
		return Repositories{}, noop, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	db, err := database.Connect(ctx, opts)
	if err != nil {
		return Repositories{}, noop, fmt.Errorf("connect database: %w", err)
	}
	if err := db.RunMigrations(ctx, database.NewEmbeddedMigrator(db, logr)); err != nil {
		_ = db.Close()
		return Repositories{}, noop, fmt.Errorf("database migrations: %w", err)
	}

	logr.Info("using sql repositories", "backend", cfg.DataBackend, "dialect", db.Dialect)
	return Repositories{
		Users:       sqlstore.NewUserRepository(db.DB, db.Dialect),
		Predictions: sqlstore.NewPredictionRepository(db.DB, db.Dialect),
	}, db.Close, nil
}

// LoadClassifier loads the configured model, or the bundled one when no
// paths are set.
func LoadClassifier(cfg config.Config, logr *slog.Logger) (*classifier.Model, error) {
	if cfg.ModelPath == "" {
		logr.Info("using bundled classifier model")
		return classifier.Default()
	}
	model, err := classifier.Load(cfg.ModelPath, cfg.EncodersPath)
	if err != nil {
		return nil, err
	}
	logr.Info("classifier model loaded", "model", cfg.ModelPath, "encoders", cfg.EncodersPath)
	return model, nil
}
