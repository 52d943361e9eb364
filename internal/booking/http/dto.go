package http

import (
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	Status        string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	AsGuide       bool       `form:"as_guide"`
	StartTimeFrom *time.Time `form:"start_time_from" time_format:"2006-01-02T15:04:05Z07:00"`
	StartTimeTo   *time.Time `form:"start_time_to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type SettlementResponse struct {
	ActorRole        string `json:"actor_role"`
	HoursBefore      int    `json:"hours_before"`
	RefundPercent    int    `json:"refund_percent"`
	PenaltyPercent   int    `json:"penalty_percent"`
	RefundToTraveler int64  `json:"refund_to_traveler"`
	KeepByGuide      int64  `json:"keep_by_guide"`
	PenaltyAmount    int64  `json:"penalty_amount"`
}

type CancelInfoResponse struct {
	At         time.Time          `json:"at"`
	ActorRole  string             `json:"actor_role"`
	Settlement SettlementResponse `json:"settlement"`
}

type BookingResponse struct {
	ID         string              `json:"id"`
	GuideID    string              `json:"guide_id"`
	TravelerID string              `json:"traveler_id"`
	StartAt    time.Time           `json:"start_at"`
	EndAt      time.Time           `json:"end_at"`
	Price      int64               `json:"price"`
	Status     string              `json:"status"`
	CancelInfo *CancelInfoResponse `json:"cancel_info,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:         b.ID,
		GuideID:    b.GuideID,
		TravelerID: b.TravelerID,
		StartAt:    b.StartAt,
		EndAt:      b.EndAt,
		Price:      b.Price,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if ci := b.CancelInfo; ci != nil {
		resp.CancelInfo = &CancelInfoResponse{
			At:        ci.At,
			ActorRole: string(ci.ActorRole),
			Settlement: SettlementResponse{
				ActorRole:        string(ci.Settlement.ActorRole),
				HoursBefore:      ci.Settlement.HoursBefore,
				RefundPercent:    ci.Settlement.RefundPercent,
				PenaltyPercent:   ci.Settlement.PenaltyPercent,
				RefundToTraveler: ci.Settlement.RefundToTraveler,
				KeepByGuide:      ci.Settlement.KeepByGuide,
				PenaltyAmount:    ci.Settlement.PenaltyAmount,
			},
		}
	}
	return resp
}

type CreateBookingRequest struct {
	GuideID string    `json:"guide_id" binding:"required,uuid"`
	StartAt time.Time `json:"start_at" binding:"required"`
	EndAt   time.Time `json:"end_at" binding:"required"`
	Price   int64     `json:"price" binding:"required,min=1"`
}

type CancelBookingRequest struct {
	ForceMajeure bool `json:"force_majeure"`
}

// PolicyTierResponse mirrors booking.PolicyTier for the public policy endpoint.
type PolicyTierResponse struct {
	MinHoursBefore int `json:"min_hours_before"`
	Percent        int `json:"percent"`
}

// CancellationPolicyResponse is the public summary of the deployed
// cancellation policy.
type CancellationPolicyResponse struct {
	TravelerRefundTiers []PolicyTierResponse `json:"traveler_refund_tiers"`
	GuidePenaltyTiers   []PolicyTierResponse `json:"guide_penalty_tiers"`
	MinCancelHours      int                  `json:"min_cancel_hours"`
	ForceMajeure        []string             `json:"force_majeure"`
	Note                string               `json:"note"`
}

func newPolicyTiers(tiers []booking.PolicyTier) []PolicyTierResponse {
	out := make([]PolicyTierResponse, len(tiers))
	for i, t := range tiers {
		out[i] = PolicyTierResponse{MinHoursBefore: t.MinHoursBefore, Percent: t.Percent}
	}
	return out
}
