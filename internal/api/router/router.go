package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/api/handler"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/api/middleware"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/jwt"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/redis"
)

// Public endpoints that hand out identities are throttled per client IP.
const (
	activateRateLimit  = 10
	activateRateWindow = time.Minute
)

// Setup builds the gin engine. rdb may be nil.
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	users middleware.UserSyncer,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// A nil *redis.Client must not become a non-nil interface.
	var (
		blacklist middleware.Blacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// ── public ──
		v1.POST("/guest/activate", middleware.RateLimit(limiter, activateRateLimit, activateRateWindow), h.Guest.Activate)
		v1.POST("/webhooks/payments", h.Payment.Webhook)

		// ── authenticated ──
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		authorized.Use(middleware.SyncUser(users, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/me", h.User.GetMe)
			authorized.GET("/me/payments", h.Payment.ListMine)
			authorized.GET("/dashboard", h.Community.Dashboard)
			authorized.GET("/leaderboard", h.Community.Leaderboard)

			exercises := authorized.Group("/exercises")
			{
				exercises.GET("", h.Exercise.ListExercises)
				exercises.GET("/:id", h.Exercise.GetExercise)
				exercises.POST("/:id/submit", h.Exercise.Submit)
			}

			progress := authorized.Group("/progress")
			{
				progress.GET("", h.Progress.GetProgress)
				progress.POST("/complete", h.Progress.Complete)
				progress.GET("/history", h.Progress.History)
			}

			authorized.GET("/challenges/:id/progress", h.Community.ChallengeProgress)
			authorized.POST("/observations", h.Community.CreateObservation)
			authorized.POST("/observations/:id/like", h.Community.ToggleLike)

			authorized.POST("/beta/redeem", h.BetaCode.Redeem)

			guest := authorized.Group("/guest")
			{
				guest.GET("/session", h.Guest.Session)
				guest.POST("/convert", h.Guest.Convert)
			}

			// ── admin ──
			admin := authorized.Group("/admin")
			admin.Use(middleware.RoleAuth(model.RoleAdmin))
			{
				admin.POST("/beta-codes", h.BetaCode.Generate)
				admin.GET("/beta-codes", h.BetaCode.List)
				admin.GET("/beta-codes/export", h.BetaCode.Export)

				admin.GET("/users", h.User.ListUsers)
				admin.PUT("/users/:id/role", h.User.AssignRole)

				admin.POST("/exercises", h.Exercise.CreateExercise)
				admin.POST("/challenges", h.Community.CreateChallenge)
				admin.POST("/guest-codes", h.Guest.CreateCode)
			}
		}
	}

	return r
}
