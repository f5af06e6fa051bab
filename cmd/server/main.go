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

	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/api/handler"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/api/router"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/database"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/jwt"
	applogger "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/logger"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/payment"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("HABITAT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.App.Location().String()),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis is optional: without it the leaderboard reads the database,
	// logout is a no-op and rate limits are not enforced.
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running degraded", zap.Error(err))
		rdb = nil
	}

	// 5. token verification and payment webhooks
	jwtMgr := jwt.NewManager(&cfg.Auth)
	verifier := payment.NewStripeVerifier(&cfg.Payment)

	// 6. repository → service → handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, verifier, clock.Real{}, logger)
	h := handler.NewHandler(svc)

	if rdb != nil {
		warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
		if err := svc.Leaderboard.Rebuild(warmCtx); err != nil {
			// reads rebuild on demand while the marker is missing
			logger.Warn("warm leaderboard cache", zap.Error(err))
		}
		cancelWarm()
	}

	// 7. router
	engine := router.Setup(cfg, h, jwtMgr, rdb, svc.User, logger)

	// 8. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// 9. wait for a signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("close database", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("server stopped")
}
