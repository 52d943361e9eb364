package guide

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("guide not found")
	ErrNotOwner       = errors.New("only the profile owner may edit a guide profile")
	ErrAlreadyGuide   = errors.New("user already has a guide profile")
	ErrInvalidRate    = errors.New("price per hour must be a positive amount")
	ErrEmptyLanguages = errors.New("at least one language is required")
)

// Guide is a bookable guide profile. Exactly one per user account; the
// owning user is the only actor allowed to confirm bookings against it.
type Guide struct {
	ID           string
	UserID       string
	Bio          string
	City         string
	Country      string
	Languages    []string
	PricePerHour int64 // smallest currency unit
	RatingAvg    float64
	RatingCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter defines parameters for searching guides.
type Filter struct {
	City     string
	Country  string
	Language string
	MaxRate  int64
	Page     int
	PageSize int
}
