package http

import (
	"net/http"
	"time"

	"dentallearn/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries what the HTTP surface needs.
type RouterConfig struct {
	Service        *app.Gamification
	Auth           *Authenticator
	Metrics        http.Handler
	NeighborWindow int
	Log            *zap.Logger
}

// NewRouter builds the gin engine: health and metrics at the root, the
// authenticated API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	window := cfg.NeighborWindow
	if window <= 0 {
		window = app.DefaultNeighborWindow
	}

	api := router.Group("/api/v1")
	api.Use(cfg.Auth.Middleware())
	newDailyQuizRoutes(api, cfg.Service, cfg.Log)
	newStreakRoutes(api, cfg.Service, cfg.Log)
	newLeaderboardRoutes(api, cfg.Service, NewWSHandler(cfg.Service, cfg.Log), window, cfg.Log)
	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String(userIDKey, userIDFrom(c)),
		)
	}
}
