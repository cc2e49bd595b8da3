package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pawlink/vet-scheduling/internal/api"
	"github.com/pawlink/vet-scheduling/internal/booking"
	"github.com/pawlink/vet-scheduling/internal/config"
	"github.com/pawlink/vet-scheduling/internal/db"
	"github.com/pawlink/vet-scheduling/internal/logger"
	redisclient "github.com/pawlink/vet-scheduling/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("api-server starting up", zap.String("env", cfg.Env), zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	directory := booking.NewPgDirectory(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	meetings := &booking.OpaqueLinkProvider{}

	lifecycle := booking.NewLifecycle(repo, locker, meetings, zlog)
	catalog := booking.NewCatalog(repo, directory, locker, zlog)
	engine := booking.NewEngine(repo, directory, directory, locker, lifecycle, zlog)
	search := booking.NewSearchIndex(repo, directory)

	handler := api.NewRouter(api.RouterConfig{
		Catalog:   catalog,
		Engine:    engine,
		Lifecycle: lifecycle,
		Search:    search,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    zlog,
		JWTSecret: cfg.JWTSecret,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
