package http

import (
	"net/http"

	"dentallearn/internal/app"
	"dentallearn/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type streakRoutes struct {
	service *app.Gamification
	log     *zap.Logger
}

func newStreakRoutes(handler *gin.RouterGroup, service *app.Gamification, log *zap.Logger) {
	r := &streakRoutes{service: service, log: log}
	h := handler.Group("/streaks")
	{
		h.GET("", r.get)
		h.POST("/update", r.update)
	}
}

type streakResponse struct {
	domain.StreakState
	AtRisk bool `json:"atRisk"`
}

func (r *streakRoutes) get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := userIDFrom(c)

	state, err := r.service.Streak(ctx, userID)
	if err != nil {
		writeError(c, r.log, "failed to load streak", err)
		return
	}
	atRisk, err := r.service.StreakAtRisk(ctx, userID)
	if err != nil {
		writeError(c, r.log, "failed to load streak", err)
		return
	}
	c.JSON(http.StatusOK, streakResponse{StreakState: state, AtRisk: atRisk})
}

func (r *streakRoutes) update(c *gin.Context) {
	state, err := r.service.RecordActivity(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, r.log, "failed to update streak", err)
		return
	}
	c.JSON(http.StatusOK, streakResponse{StreakState: state})
}
