package http

import (
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
)

// ListGuidesRequest defines query parameters for searching guides.
type ListGuidesRequest struct {
	request.ListParams
	City     string `form:"city"`
	Country  string `form:"country"`
	Language string `form:"language"`
	MaxRate  int64  `form:"max_rate" binding:"omitempty,min=1"`
}

type GuideResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Bio          string    `json:"bio"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Languages    []string  `json:"languages"`
	PricePerHour int64     `json:"price_per_hour"`
	RatingAvg    float64   `json:"rating_avg"`
	RatingCount  int       `json:"rating_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewGuideResponse(g *guide.Guide) GuideResponse {
	langs := g.Languages
	if langs == nil {
		langs = []string{}
	}
	return GuideResponse{
		ID:           g.ID,
		UserID:       g.UserID,
		Bio:          g.Bio,
		City:         g.City,
		Country:      g.Country,
		Languages:    langs,
		PricePerHour: g.PricePerHour,
		RatingAvg:    g.RatingAvg,
		RatingCount:  g.RatingCount,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

type CreateGuideRequest struct {
	Bio          string   `json:"bio" binding:"max=2000"`
	City         string   `json:"city" binding:"required"`
	Country      string   `json:"country" binding:"required"`
	Languages    []string `json:"languages" binding:"required,min=1"`
	PricePerHour int64    `json:"price_per_hour" binding:"required,min=1"`
}

type UpdateGuideRequest struct {
	Bio          *string  `json:"bio"`
	City         *string  `json:"city"`
	Country      *string  `json:"country"`
	Languages    []string `json:"languages"`
	PricePerHour *int64   `json:"price_per_hour"`
}
