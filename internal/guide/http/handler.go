package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/response"
)

type Handler struct {
	service guide.Service
}

func NewHandler(service guide.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateGuideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	g, err := h.service.Create(c.Request.Context(), guide.CreateRequest{
		UserID:       userID,
		Bio:          body.Bio,
		City:         body.City,
		Country:      body.Country,
		Languages:    body.Languages,
		PricePerHour: body.PricePerHour,
	})
	if err != nil {
		switch {
		case errors.Is(err, guide.ErrAlreadyGuide):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, guide.ErrInvalidRate), errors.Is(err, guide.ErrEmptyLanguages):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create guide profile"})
		}
		return
	}

	c.JSON(http.StatusCreated, NewGuideResponse(g))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	g, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, guide.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "guide not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get guide"})
		return
	}

	c.JSON(http.StatusOK, NewGuideResponse(g))
}

func (h *Handler) List(c *gin.Context) {
	var req ListGuidesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	guides, total, err := h.service.List(c.Request.Context(), guide.Filter{
		City:     req.City,
		Country:  req.Country,
		Language: req.Language,
		MaxRate:  req.MaxRate,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list guides"})
		return
	}

	items := make([]GuideResponse, len(guides))
	for i, g := range guides {
		items[i] = NewGuideResponse(g)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body UpdateGuideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID := auth.GetUserID(c)

	g, err := h.service.Update(c.Request.Context(), id, guide.UpdateRequest{
		Bio:          body.Bio,
		City:         body.City,
		Country:      body.Country,
		Languages:    body.Languages,
		PricePerHour: body.PricePerHour,
	}, userID)
	if err != nil {
		switch {
		case errors.Is(err, guide.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "guide not found"})
		case errors.Is(err, guide.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, guide.ErrInvalidRate), errors.Is(err, guide.ErrEmptyLanguages):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update guide"})
		}
		return
	}

	c.JSON(http.StatusOK, NewGuideResponse(g))
}
