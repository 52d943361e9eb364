package http

import (
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/availability"
)

type CreateBlockRequest struct {
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at" binding:"required"`
}

type BlockResponse struct {
	ID        string    `json:"id"`
	GuideID   string    `json:"guide_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBlockResponse(b *availability.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		GuideID:   b.GuideID,
		StartAt:   b.StartAt,
		EndAt:     b.EndAt,
		CreatedAt: b.CreatedAt,
	}
}

// BlockListResponse wraps block listings; availability lists are capped, not
// paginated.
type BlockListResponse struct {
	Items []BlockResponse `json:"items"`
}

func NewBlockListResponse(blocks []*availability.Block) BlockListResponse {
	items := make([]BlockResponse, len(blocks))
	for i, b := range blocks {
		items[i] = NewBlockResponse(b)
	}
	return BlockListResponse{Items: items}
}
