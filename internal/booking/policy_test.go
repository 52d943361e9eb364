package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoursBefore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 48, HoursBefore(now, now.Add(48*time.Hour)))
	assert.Equal(t, 29, HoursBefore(now, now.Add(29*time.Hour+59*time.Minute)), "partial hours floor down")
	assert.Equal(t, 0, HoursBefore(now, now.Add(30*time.Minute)))
	assert.Equal(t, 0, HoursBefore(now, now.Add(-2*time.Hour)), "already started clamps to zero")
}

func TestPolicyEvaluate_TravelerTiers(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name        string
		hoursBefore int
		wantPct     int
		wantRefund  int64
	}{
		{"48h full refund", 48, 100, 100},
		{"30h half refund", 30, 50, 50},
		{"24h half refund", 24, 50, 50},
		{"23h no refund", 23, 0, 0},
		{"0h no refund", 0, 0, 0},
		{"far out full refund", 500, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := policy.Evaluate(tt.hoursBefore, RoleTraveler, false, 100)

			assert.Equal(t, RoleTraveler, s.ActorRole)
			assert.Equal(t, tt.hoursBefore, s.HoursBefore)
			assert.Equal(t, tt.wantPct, s.RefundPercent)
			assert.Equal(t, tt.wantRefund, s.RefundToTraveler)
			assert.Equal(t, int64(100)-tt.wantRefund, s.KeepByGuide)
		})
	}
}

func TestPolicyEvaluate_ForceMajeure(t *testing.T) {
	policy := DefaultPolicy()

	s := policy.Evaluate(1, RoleTraveler, true, 100)
	assert.Equal(t, 100, s.RefundPercent, "force majeure overrides the tier table")
	assert.Equal(t, int64(100), s.RefundToTraveler)
	assert.Equal(t, int64(0), s.KeepByGuide)

	s = policy.Evaluate(1, RoleGuide, true, 100)
	assert.Equal(t, 0, s.PenaltyPercent, "force majeure waives the guide penalty")
	assert.Equal(t, int64(100), s.RefundToTraveler, "traveler is still made whole")
}

func TestPolicyEvaluate_GuideCancels(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name        string
		hoursBefore int
		wantPenalty int
	}{
		{"48h penalty free", 48, 0},
		{"30h small penalty", 30, 20},
		{"2h large penalty", 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := policy.Evaluate(tt.hoursBefore, RoleGuide, false, 200)

			assert.Equal(t, int64(200), s.RefundToTraveler, "traveler always refunded in full")
			assert.Equal(t, int64(0), s.KeepByGuide)
			assert.Equal(t, tt.wantPenalty, s.PenaltyPercent)
			assert.Equal(t, int64(200*tt.wantPenalty/100), s.PenaltyAmount)
		})
	}
}

func TestPolicyEvaluate_PenaltyFreeGuideTable(t *testing.T) {
	policy := DefaultPolicy()
	policy.GuidePenaltyTiers = []PolicyTier{{MinHoursBefore: 0, Percent: 0}}

	s := policy.Evaluate(1, RoleGuide, false, 100)
	assert.Equal(t, 0, s.PenaltyPercent)
	assert.Equal(t, int64(0), s.PenaltyAmount)
}

func TestPercentOf_Rounding(t *testing.T) {
	// Half-up rounding to the smallest currency unit.
	assert.Equal(t, int64(50), percentOf(99, 50), "49.5 rounds up")
	assert.Equal(t, int64(33), percentOf(65, 50), "32.5 rounds up")
	assert.Equal(t, int64(1), percentOf(1, 100))
	assert.Equal(t, int64(0), percentOf(0, 100))
	assert.Equal(t, int64(0), percentOf(100, 0))
	assert.Equal(t, int64(100), percentOf(100, 100), "never exceeds price")
}
