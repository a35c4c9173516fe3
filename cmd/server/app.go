package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wadjakorntonsri/linkora/pkg/adapters/handler"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/qr"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/redis"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

type app struct {
	handler    http.Handler
	workspaces *services.Workspaces
	auth       *services.AuthService
	closers    []func() error
}

// newApp wires storage, services and the router. Accounts always live in the
// SQL database; snapshots move to Redis when REDIS_URL is set.
func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*app, error) {
	a := &app{}

	db, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	var snapshots ports.SnapshotRepository = db
	if cfg.RedisURL != "" {
		rdb, err := redis.NewRepository(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		snapshots = rdb
		logger.Info(ctx, "Snapshots stored in Redis")
	}

	a.workspaces = services.NewWorkspaces(snapshots, cfg.SnapshotKey, logger,
		services.WithOrigin(cfg.BaseURL),
		services.WithPersistTimeout(cfg.PersistTimeout),
	)
	a.auth = services.NewAuthService(db, services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		SessionTTL:    cfg.SessionTTL,
		AllowedEmails: cfg.AllowedEmails,
	}, logger)
	a.auth.OnSessionChange(a.workspaces.HandleSessionChange)

	a.handler = handler.NewRouter(cfg, a.workspaces, a.auth, qr.NewRenderer(), logger)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
