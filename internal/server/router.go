package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spectrum/internal/game"
)

// Routes builds the HTTP surface: liveness probe, read-only room lookup,
// theme listing and the websocket endpoint.
func (h *Handler) Routes() *gin.Engine {
	r := gin.Default()

	r.GET("/health", h.health)
	api := r.Group("/api")
	{
		api.GET("/rooms/:id", h.roomInfo)
		api.GET("/themes", h.themeList)
	}
	r.GET("/ws", h.handleGameWS)

	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UnixMilli()})
}

// roomInfo exposes public room metadata and the roster for diagnostics. Game
// internals (target, deck seed) stay server-side.
func (h *Handler) roomInfo(c *gin.Context) {
	roomID := c.Param("id")
	room, ok := h.registry.GetRoom(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":    room.ID,
		"mode":      room.Mode,
		"createdAt": room.CreatedAt.UnixMilli(),
		"players":   h.registry.Players(roomID),
	})
}

func (h *Handler) themeList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": game.Themes()})
}
