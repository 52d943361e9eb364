package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PATCH("/:id/confirm", h.Confirm)
		group.PATCH("/:id/cancel", h.Cancel)
	}

	// === Public Routes ===
	g.GET("/policies/cancellation", h.Policy)
}
