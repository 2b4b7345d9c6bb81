package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cashpoints/referralhub/internal/config"
	"cashpoints/referralhub/internal/handler"
	"cashpoints/referralhub/internal/model"
	"cashpoints/referralhub/internal/repository"
	"cashpoints/referralhub/internal/service"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize leaderboard cache (Redis or in-memory)
	var leaderboardCache repository.LeaderboardCache
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		leaderboardCache = repository.NewRedisLeaderboardCache(redisClient)
		logger.Info("using Redis leaderboard cache")
	case "memory":
		leaderboardCache = repository.NewMemoryLeaderboardCache()
		logger.Info("using in-memory leaderboard cache")
	default:
		logger.Fatal("unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	// 6. Initialize repositories
	referrerRepo := repository.NewPGReferrerRepository(db)
	referralRepo := repository.NewPGReferralRepository(db)
	earningRepo := repository.NewPGEarningRepository(db)
	notificationRepo := repository.NewPGNotificationRepository(db)

	// 7. Initialize services
	ledgerService := service.NewLedgerService(referrerRepo, earningRepo, logger)
	progressionService := service.NewProgressionService(referrerRepo, notificationRepo, ledgerService, logger)
	referralService := service.NewReferralService(
		referralRepo, notificationRepo,
		ledgerService, progressionService,
		cfg.Reward, logger,
	)
	referrerService := service.NewReferrerService(referrerRepo, notificationRepo)
	statsService := service.NewStatsService(
		referrerRepo, referralRepo, earningRepo,
		leaderboardCache, cfg.Cache.LeaderboardTTL, logger,
	)

	// 8. Initialize handlers
	referralHandler := handler.NewReferralHandler(referralService)
	statsHandler := handler.NewStatsHandler(statsService, referrerService, progressionService)
	adminHandler := handler.NewAdminHandler(referralService)

	// 9. Setup router
	router := handler.SetupRouter(cfg, logger, referralHandler, statsHandler, adminHandler)

	// 10. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 11. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
