package availability

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "availability block not found")
	ErrInvalidRange = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrOverlap      = apperror.New(http.StatusConflict, "range overlaps an existing availability block")
	ErrNotGuide     = apperror.New(http.StatusForbidden, "no guide profile for this user")
)

// Block is a time window a guide opens for booking. Blocks of one guide
// never overlap each other.
type Block struct {
	ID        string
	GuideID   string
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
