package guide

import (
	"context"
	"errors"
	"strings"
)

type CreateRequest struct {
	UserID       string
	Bio          string
	City         string
	Country      string
	Languages    []string
	PricePerHour int64
}

type UpdateRequest struct {
	Bio          *string
	City         *string
	Country      *string
	Languages    []string
	PricePerHour *int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Guide, error)
	GetByID(ctx context.Context, id string) (*Guide, error)
	GetByUserID(ctx context.Context, userID string) (*Guide, error)
	List(ctx context.Context, filter Filter) ([]*Guide, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, updaterUserID string) (*Guide, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Guide, error) {
	if req.PricePerHour <= 0 {
		return nil, ErrInvalidRate
	}

	langs := normalizeLanguages(req.Languages)
	if len(langs) == 0 {
		return nil, ErrEmptyLanguages
	}

	// One profile per user.
	if _, err := s.repo.GetByUserID(ctx, req.UserID); err == nil {
		return nil, ErrAlreadyGuide
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	g := &Guide{
		UserID:       req.UserID,
		Bio:          strings.TrimSpace(req.Bio),
		City:         strings.TrimSpace(req.City),
		Country:      strings.TrimSpace(req.Country),
		Languages:    langs,
		PricePerHour: req.PricePerHour,
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Guide, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByUserID(ctx context.Context, userID string) (*Guide, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Guide, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, updaterUserID string) (*Guide, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Only the owning user may edit the profile.
	if g.UserID != updaterUserID {
		return nil, ErrNotOwner
	}

	if req.Bio != nil {
		g.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.City != nil {
		g.City = strings.TrimSpace(*req.City)
	}
	if req.Country != nil {
		g.Country = strings.TrimSpace(*req.Country)
	}
	if req.Languages != nil {
		langs := normalizeLanguages(req.Languages)
		if len(langs) == 0 {
			return nil, ErrEmptyLanguages
		}
		g.Languages = langs
	}
	if req.PricePerHour != nil {
		if *req.PricePerHour <= 0 {
			return nil, ErrInvalidRate
		}
		g.PricePerHour = *req.PricePerHour
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

// normalizeLanguages lowercases, trims and deduplicates language codes.
func normalizeLanguages(langs []string) []string {
	seen := make(map[string]bool, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
