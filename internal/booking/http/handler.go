package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/response"
)

type Handler struct {
	service      booking.Service
	guideService guide.Service
}

func NewHandler(service booking.Service, guideService guide.Service) *Handler {
	return &Handler{
		service:      service,
		guideService: guideService,
	}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		TravelerID: userID,
		GuideID:    body.GuideID,
		StartAt:    body.StartAt,
		EndAt:      body.EndAt,
		Price:      body.Price,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	userID := auth.GetUserID(c)

	filter := booking.Filter{
		Status:    req.Status,
		StartFrom: req.StartTimeFrom,
		StartTo:   req.StartTimeTo,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}

	if req.AsGuide {
		// A guide sees the bookings placed against their own profile.
		g, err := h.guideService.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, guide.ErrNotFound) {
				c.JSON(http.StatusForbidden, gin.H{"error": "no guide profile for this user"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve guide profile"})
			return
		}
		filter.GuideID = g.ID
	} else {
		filter.TravelerID = userID
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Confirm(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	b, err := h.service.Confirm(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body CancelBookingRequest
	// The body is optional; an empty body means a normal cancellation.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	b, err := h.service.Cancel(c.Request.Context(), id, auth.GetUserID(c), body.ForceMajeure)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// Policy serves the public summary of the deployed cancellation policy.
func (h *Handler) Policy(c *gin.Context) {
	p := h.service.CancellationPolicy()
	c.JSON(http.StatusOK, CancellationPolicyResponse{
		TravelerRefundTiers: newPolicyTiers(p.TravelerRefundTiers),
		GuidePenaltyTiers:   newPolicyTiers(p.GuidePenaltyTiers),
		MinCancelHours:      p.MinCancelHours,
		ForceMajeure: []string{
			"medical emergency",
			"death of an immediate family member",
			"extreme weather or natural disaster",
			"government closure or safety advisory",
		},
		Note: "public summary; the actual settlement is computed per booking on cancellation",
	})
}

// writeError maps domain errors to HTTP responses. Overlap conflicts carry
// the id of the booking that already occupies the slot so clients can show it.
func (h *Handler) writeError(c *gin.Context, err error) {
	var overlapErr *booking.OverlapError
	if errors.As(err, &overlapErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "time slot already booked",
			"conflicting_id": overlapErr.ConflictingID,
		})
		return
	}
	response.Error(c, err)
}
