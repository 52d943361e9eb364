package booking

import "time"

// PolicyTier maps a minimum hours-before-start threshold to a percentage.
// Tiers are kept ordered by descending MinHoursBefore; the first tier whose
// threshold is <= the actual hours before start applies.
type PolicyTier struct {
	MinHoursBefore int `json:"min_hours_before"`
	Percent        int `json:"percent"`
}

// Policy is the injected cancellation configuration. Tier tables are
// deployment configuration, never hardcoded at call sites: a deployment
// that lets guides cancel penalty-free sets GuidePenaltyTiers to {0 -> 0}.
type Policy struct {
	// TravelerRefundTiers yield the traveler's refund percentage when the
	// traveler cancels.
	TravelerRefundTiers []PolicyTier
	// GuidePenaltyTiers yield the share of the price the guide forfeits
	// when the guide cancels late.
	GuidePenaltyTiers []PolicyTier
	// MinCancelHours is the earliest point (hours before start) at which a
	// traveler may still cancel a confirmed booking.
	MinCancelHours int
	// RejectConfirmedOverlapOnCreate makes Create fail when the requested
	// slot overlaps an already confirmed booking. Pending bookings never
	// block creation.
	RejectConfirmedOverlapOnCreate bool
}

// DefaultPolicy returns the canonical deployment configuration.
func DefaultPolicy() Policy {
	return Policy{
		TravelerRefundTiers: []PolicyTier{
			{MinHoursBefore: 48, Percent: 100},
			{MinHoursBefore: 24, Percent: 50},
			{MinHoursBefore: 0, Percent: 0},
		},
		GuidePenaltyTiers: []PolicyTier{
			{MinHoursBefore: 48, Percent: 0},
			{MinHoursBefore: 24, Percent: 20},
			{MinHoursBefore: 0, Percent: 50},
		},
		MinCancelHours:                 24,
		RejectConfirmedOverlapOnCreate: true,
	}
}

// Settlement is the computed financial outcome of a cancellation.
// RefundToTraveler + KeepByGuide always equals the booking price.
// PenaltyAmount is an additional share forfeited by the guide when the guide
// cancels late, surfaced for a downstream billing process.
type Settlement struct {
	ActorRole        Role  `json:"actor_role"`
	HoursBefore      int   `json:"hours_before"`
	RefundPercent    int   `json:"refund_percent"`
	PenaltyPercent   int   `json:"penalty_percent"`
	RefundToTraveler int64 `json:"refund_to_traveler"`
	KeepByGuide      int64 `json:"keep_by_guide"`
	PenaltyAmount    int64 `json:"penalty_amount"`
}

// HoursBefore converts the gap between now and start into whole hours,
// clamped at zero for bookings already started.
func HoursBefore(now, startAt time.Time) int {
	d := startAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Hour)
}

// Evaluate computes the settlement for a cancellation happening hoursBefore
// hours ahead of the booking start. Force majeure overrides the tier tables
// with the most favorable outcome for the affected party: full refund when
// the traveler cancels, zero penalty when the guide cancels.
func (p Policy) Evaluate(hoursBefore int, actorRole Role, forceMajeure bool, price int64) Settlement {
	s := Settlement{
		ActorRole:   actorRole,
		HoursBefore: hoursBefore,
	}

	switch actorRole {
	case RoleGuide:
		// The traveler is always made whole when the guide cancels.
		s.RefundPercent = 100
		if !forceMajeure {
			s.PenaltyPercent = pickTier(p.GuidePenaltyTiers, hoursBefore)
		}
	default:
		if forceMajeure {
			s.RefundPercent = 100
		} else {
			s.RefundPercent = pickTier(p.TravelerRefundTiers, hoursBefore)
		}
	}

	s.RefundToTraveler = percentOf(price, s.RefundPercent)
	s.KeepByGuide = price - s.RefundToTraveler
	s.PenaltyAmount = percentOf(price, s.PenaltyPercent)

	return s
}

// pickTier returns the percent of the first tier whose threshold is met.
// Tables are ordered by descending MinHoursBefore, so a trailing {0, pct}
// tier acts as the catch-all.
func pickTier(tiers []PolicyTier, hoursBefore int) int {
	for _, t := range tiers {
		if hoursBefore >= t.MinHoursBefore {
			return t.Percent
		}
	}
	return 0
}

// percentOf rounds half-up to the smallest currency unit and clamps the
// result into [0, price].
func percentOf(price int64, pct int) int64 {
	if pct <= 0 || price <= 0 {
		return 0
	}
	v := (price*int64(pct) + 50) / 100
	if v > price {
		return price
	}
	return v
}
