package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrGuideNotFound     = apperror.New(http.StatusNotFound, "guide not found")
	ErrInvalidRange      = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrInvalidPrice      = apperror.New(http.StatusBadRequest, "price must be a positive amount")
	ErrSelfBooking       = apperror.New(http.StatusBadRequest, "a guide cannot book their own calendar")
	ErrForbidden         = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "a cancelled booking cannot be confirmed")
	ErrWindowClosed      = apperror.New(http.StatusConflict, "too late to cancel this booking")
	ErrUnavailable       = apperror.New(http.StatusServiceUnavailable, "booking storage is busy, please retry")
)

// OverlapError reports a time-slot conflict with an existing confirmed booking.
type OverlapError struct {
	ConflictingID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("time slot already booked (conflicts with booking %s)", e.ConflictingID)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Role identifies which side of a booking an actor is on.
type Role string

const (
	RoleTraveler Role = "traveler"
	RoleGuide    Role = "guide"
)

// CancelInfo records the terminal cancellation outcome.
// It is written exactly once; a repeated cancel never overwrites it.
type CancelInfo struct {
	At         time.Time  `json:"at"`
	ActorRole  Role       `json:"actor_role"`
	Settlement Settlement `json:"settlement"`
}

// Booking is a reservation of a guide's time slot [StartAt, EndAt).
// Price is an integer amount in the smallest currency unit.
type Booking struct {
	ID         string
	GuideID    string
	TravelerID string
	StartAt    time.Time
	EndAt      time.Time
	Price      int64
	Status     Status
	CancelInfo *CancelInfo
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter narrows booking listings.
type Filter struct {
	TravelerID string
	GuideID    string
	Status     string
	StartFrom  *time.Time
	StartTo    *time.Time
	Page       int
	PageSize   int
}

// Event types emitted to the notification sink.
const (
	EventConfirmed = "booking.confirmed"
	EventCancelled = "booking.cancelled"
)

// Event is the payload handed to a Sink after a state transition commits.
type Event struct {
	Type       string
	Booking    Booking
	Settlement *Settlement
}

// Sink receives lifecycle events. Delivery is best effort: emit failures
// never roll back the transition that produced the event.
type Sink interface {
	Emit(event Event)
}
