package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/wadjakorntonsri/linkora/pkg/adapters/handler"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/qr"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/redis"
	"github.com/wadjakorntonsri/linkora/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/linkora/pkg/config"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

var (
	once    sync.Once
	mux     http.Handler
	initErr error
)

// Note: On Vercel, db.sqlite is ephemeral unless DATABASE_URL points at Turso
// or Postgres, and snapshots should go to REDIS_URL.
func setup() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	logger, err := observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		initErr = err
		return
	}

	db, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		initErr = err
		return
	}
	var snapshots ports.SnapshotRepository = db
	if cfg.RedisURL != "" {
		if snapshots, err = redis.NewRepository(context.Background(), cfg.RedisURL); err != nil {
			initErr = err
			return
		}
	}

	workspaces := services.NewWorkspaces(snapshots, cfg.SnapshotKey, logger,
		services.WithOrigin(cfg.BaseURL),
		services.WithPersistTimeout(cfg.PersistTimeout),
	)
	auth := services.NewAuthService(db, services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		SessionTTL:    cfg.SessionTTL,
		AllowedEmails: cfg.AllowedEmails,
	}, logger)
	auth.OnSessionChange(workspaces.HandleSessionChange)

	mux = handler.NewRouter(cfg, workspaces, auth, qr.NewRenderer(), logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	mux.ServeHTTP(w, r)
}
