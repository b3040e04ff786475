package http

import (
	"net/http"
	"strconv"

	"dentallearn/internal/app"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type leaderboardRoutes struct {
	service *app.Gamification
	ws      *WSHandler
	window  int
	log     *zap.Logger
}

func newLeaderboardRoutes(handler *gin.RouterGroup, service *app.Gamification, ws *WSHandler, window int, log *zap.Logger) {
	r := &leaderboardRoutes{service: service, ws: ws, window: window, log: log}
	h := handler.Group("/leaderboard")
	{
		h.GET("/current", r.current)
		h.GET("/ws", r.live)
	}
}

func (r *leaderboardRoutes) current(c *gin.Context) {
	window := r.window
	if raw := c.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 25 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be between 1 and 25"})
			return
		}
		window = n
	}

	view, err := r.service.Leaderboard(c.Request.Context(), userIDFrom(c), window)
	if err != nil {
		writeError(c, r.log, "failed to load leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (r *leaderboardRoutes) live(c *gin.Context) {
	r.ws.ServeLeaderboard(c.Writer, c.Request, userIDFrom(c), r.window)
}
