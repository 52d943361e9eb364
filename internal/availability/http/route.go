package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/availability")

	// === Authenticated Routes ===
	group.POST("", authMiddleware, h.Create)
	group.GET("/me", authMiddleware, h.Mine)
	group.DELETE("/:id", authMiddleware, h.Remove)

	// === Public Routes ===
	g.GET("/guides/:id/availability", h.ListByGuide)
}
