package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-signaling/internal/audit"
	"call-signaling/internal/auth"
	"call-signaling/internal/calls"
	"call-signaling/internal/config"
	"call-signaling/internal/db"
	"call-signaling/internal/media"
	"call-signaling/internal/notify"
	"call-signaling/internal/presence"
	"call-signaling/internal/signaling"
	"call-signaling/pkg/logger"
	"call-signaling/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	verifier, err := newVerifier(rootCtx, cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	pg, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), postgresPool(cfg.DB))
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if cfg.DB.Migrate {
		if err := db.Migrate(rootCtx, pg); err != nil {
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		log.Info("schema migrated")
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	svc, err := newSignaling(cfg, pg, rdb)
	if err != nil {
		log.Error("signaling init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		Signaling: svc,
		AuthMW:    auth.RequireIdentity(verifier),
		DB:        pg,
		Redis:     rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long polls are capped below this by config validation.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"presence_backend", cfg.Presence.Backend,
			"presence_policy", cfg.Presence.Policy,
			"oidc", cfg.Auth.UsesOIDC(),
		)
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

func postgresPool(c config.DBConfig) utils.PostgresPoolConfig {
	return utils.PostgresPoolConfig{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

func newVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	if cfg.UsesOIDC() {
		return auth.NewOIDCVerifier(ctx, cfg)
	}
	return auth.NewSecretVerifier(cfg)
}

func newSignaling(cfg config.Config, pg *sql.DB, rdb *redis.Client) (*signaling.Service, error) {
	var presenceRepo presence.Repository
	switch cfg.Presence.Backend {
	case config.PresenceBackendPostgres:
		presenceRepo = presence.NewPostgresRepo(pg)
	default:
		retention := presence.RedisRetention(cfg.Presence.Window, presence.Policy(cfg.Presence.Policy))
		presenceRepo = presence.NewRedisRepo(rdb, retention)
	}

	provider, err := media.NewLiveKitProvider(cfg.LiveKit)
	if err != nil {
		return nil, err
	}

	registry := calls.NewRegistry(calls.NewPostgresRepo(pg))

	return signaling.NewService(signaling.Deps{
		Registry: registry,
		Presence: presence.NewService(presenceRepo, cfg.Presence.Window, presence.Policy(cfg.Presence.Policy)),
		Gateway:  media.NewGateway(registry, provider, cfg.LiveKit.TokenTTL),
		Notifier: notify.NewRedisNotifier(rdb),
		Audit:    audit.NewService(audit.NewRedisRepo(rdb)),
	}, signaling.Options{
		RequirePresence: cfg.Calls.RequirePresence,
		LongPollMax:     cfg.Calls.LongPollMax,
	}), nil
}
