package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonebridge/internal/auth"
	"phonebridge/internal/bindings"
	"phonebridge/internal/calls"
	"phonebridge/internal/config"
	"phonebridge/internal/httpapi"
	"phonebridge/internal/phone"
	"phonebridge/internal/popup"
	"phonebridge/internal/stats"
	"phonebridge/internal/vitalpbx"
	"phonebridge/internal/webhook"
	"phonebridge/internal/zoho"
	"phonebridge/pkg/logger"
	"phonebridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dev convenience; production injects real env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Persistence
	registry := calls.NewPostgresRegistry(db)
	directory := bindings.NewPostgresDirectory(db)
	popupStore := popup.NewPostgresStore(db)
	tokens := zoho.NewPostgresTokenSource(db)

	// Outbound clients
	contacts := zoho.NewContactClient(zoho.ContactClientConfig{
		APIBase:  cfg.Zoho.APIBase,
		Timeout:  cfg.Popup.Timeout,
		CacheTTL: cfg.Zoho.ContactCacheTTL,
	}, tokens, rdb)
	popupAPI := zoho.NewPopupClient(cfg.Zoho.APIBase, cfg.Popup.Timeout)
	pbx := vitalpbx.NewClient(vitalpbx.ClientConfig{
		APIBase: cfg.VitalPBX.APIBase,
		APIKey:  cfg.VitalPBX.APIKey,
		Tenant:  cfg.VitalPBX.Tenant,
		Timeout: cfg.VitalPBX.RequestTimeout,
	})

	// Pipeline
	dispatcher := popup.NewDispatcher(popupStore, registry, popupAPI, tokens, popup.Config{
		MaxRetries:     cfg.Popup.MaxRetries,
		RetryBatchSize: cfg.Popup.RetryBatchSize,
	})
	router := webhook.NewRouter(
		registry,
		phone.NewNormalizer(cfg.Popup.DefaultCountry),
		contacts,
		directory,
		dispatcher,
		cfg.Popup.Enabled,
	)

	handlers := httpapi.Handlers{
		Auth:     authManager,
		Registry: registry,
		Bindings: directory,
		Stats:    stats.NewService(popupStore),
		Popups:   dispatcher,
		PBX:      pbx,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		authMW:   auth.RequireAccessToken(authManager),
		handlers: handlers,
		webhook:  webhook.NewHandler(router),
		db:       db,
		redis:    rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
