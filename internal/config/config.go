package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Policy is the injected cancellation configuration. Tier tables and the
	// traveler's cancellation window are deployment choices, not constants.
	Policy booking.Policy
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	ttlStr := getEnv("JWT_ACCESS_TOKEN_TTL", "15m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}
	cfg.JWTAccessTokenTTL = ttl

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.Policy, err = loadPolicy()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadPolicy assembles the cancellation policy, starting from the canonical
// defaults and applying env overrides.
func loadPolicy() (booking.Policy, error) {
	policy := booking.DefaultPolicy()

	minHours, err := getEnvAsInt("CANCEL_MIN_HOURS", policy.MinCancelHours)
	if err != nil {
		return policy, fmt.Errorf("invalid CANCEL_MIN_HOURS: %w", err)
	}
	if minHours < 0 {
		return policy, fmt.Errorf("CANCEL_MIN_HOURS must not be negative")
	}
	policy.MinCancelHours = minHours

	rejectOverlap, err := getEnvAsBool("CREATE_REJECTS_CONFIRMED_OVERLAP", policy.RejectConfirmedOverlapOnCreate)
	if err != nil {
		return policy, fmt.Errorf("invalid CREATE_REJECTS_CONFIRMED_OVERLAP: %w", err)
	}
	policy.RejectConfirmedOverlapOnCreate = rejectOverlap

	if v := os.Getenv("TRAVELER_REFUND_TIERS"); v != "" {
		tiers, err := ParseTiers(v)
		if err != nil {
			return policy, fmt.Errorf("invalid TRAVELER_REFUND_TIERS: %w", err)
		}
		policy.TravelerRefundTiers = tiers
	}

	if v := os.Getenv("GUIDE_PENALTY_TIERS"); v != "" {
		tiers, err := ParseTiers(v)
		if err != nil {
			return policy, fmt.Errorf("invalid GUIDE_PENALTY_TIERS: %w", err)
		}
		policy.GuidePenaltyTiers = tiers
	}

	return policy, nil
}

// ParseTiers parses a tier table from its env string form, e.g.
// "48:100,24:50,0:0" (minHoursBefore:percent pairs). The result is ordered
// by descending threshold regardless of input order.
func ParseTiers(s string) ([]booking.PolicyTier, error) {
	parts := strings.Split(s, ",")
	tiers := make([]booking.PolicyTier, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("tier %q is not in minHours:percent form", part)
		}

		minHours, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil || minHours < 0 {
			return nil, fmt.Errorf("tier %q has an invalid hours threshold", part)
		}
		percent, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("tier %q has an invalid percent (0-100)", part)
		}

		tiers = append(tiers, booking.PolicyTier{MinHoursBefore: minHours, Percent: percent})
	}

	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier table is empty")
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinHoursBefore > tiers[j].MinHoursBefore
	})

	return tiers, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsBool retrieves an environment variable as a boolean.
func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}

	return val, nil
}
