package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cashpoints/referralhub/internal/config"
	"cashpoints/referralhub/internal/handler/middleware"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	referralHandler *ReferralHandler,
	statsHandler *StatsHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Join-event endpoint: fixed wire contract with the mini-app frontend.
	// OPTIONS preflight is answered by the CORS middleware.
	r.POST("/handle-referral", referralHandler.HandleReferral)
	r.POST("/handle-leave", referralHandler.HandleLeave)

	api := r.Group("/api/v1")
	{
		api.GET("/referrers/:id", statsHandler.GetReferrer)
		api.GET("/referrers/:id/stats", statsHandler.GetStats)
		api.GET("/referrers/:id/breakdown", statsHandler.GetBreakdown)
		api.GET("/referrers/:id/earnings", statsHandler.GetEarnings)
		api.GET("/referrers/:id/notifications", statsHandler.GetNotifications)
		api.GET("/leaderboard", statsHandler.GetLeaderboard)
		api.GET("/levels", statsHandler.GetLevels)
	}

	// Moderation routes, shared-token guarded
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth(cfg.Admin.Token))
	{
		admin.GET("/referrals", adminHandler.ListReferrals)
		admin.POST("/referrals/:id/reject", adminHandler.RejectReferral)
	}

	return r
}
