package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
)

func TestParseTiers(t *testing.T) {
	t.Run("parses and orders by descending threshold", func(t *testing.T) {
		tiers, err := ParseTiers("0:0, 48:100, 24:50")
		require.NoError(t, err)
		assert.Equal(t, []booking.PolicyTier{
			{MinHoursBefore: 48, Percent: 100},
			{MinHoursBefore: 24, Percent: 50},
			{MinHoursBefore: 0, Percent: 0},
		}, tiers)
	})

	t.Run("single tier", func(t *testing.T) {
		tiers, err := ParseTiers("0:0")
		require.NoError(t, err)
		assert.Equal(t, []booking.PolicyTier{{MinHoursBefore: 0, Percent: 0}}, tiers)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		cases := []string{
			"",
			"48",
			"48:100,24",
			"-1:50",
			"24:101",
			"24:-5",
			"abc:50",
			"24:xyz",
		}
		for _, in := range cases {
			_, err := ParseTiers(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestLoad(t *testing.T) {
	setRequired := func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://localhost:5432/app")
		t.Setenv("JWT_SECRET", "test-secret")
	}

	t.Run("defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.False(t, cfg.IsProduction)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.Equal(t, booking.DefaultPolicy(), cfg.Policy)
	})

	t.Run("missing DB_DSN", func(t *testing.T) {
		t.Setenv("DB_DSN", "")
		t.Setenv("JWT_SECRET", "test-secret")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("policy overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CANCEL_MIN_HOURS", "12")
		t.Setenv("CREATE_REJECTS_CONFIRMED_OVERLAP", "false")
		t.Setenv("TRAVELER_REFUND_TIERS", "72:100,24:25,0:0")
		t.Setenv("GUIDE_PENALTY_TIERS", "0:0")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 12, cfg.Policy.MinCancelHours)
		assert.False(t, cfg.Policy.RejectConfirmedOverlapOnCreate)
		assert.Equal(t, []booking.PolicyTier{
			{MinHoursBefore: 72, Percent: 100},
			{MinHoursBefore: 24, Percent: 25},
			{MinHoursBefore: 0, Percent: 0},
		}, cfg.Policy.TravelerRefundTiers)
		assert.Equal(t, []booking.PolicyTier{{MinHoursBefore: 0, Percent: 0}}, cfg.Policy.GuidePenaltyTiers)
	})

	t.Run("invalid tier table", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TRAVELER_REFUND_TIERS", "48:200")

		_, err := Load()
		assert.Error(t, err)
	})
}
