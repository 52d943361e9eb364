package availability

import (
	"context"
	"errors"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/booking"
	"github.com/nekogravitycat/guide-booking-backend/internal/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
)

// upcomingListLimit caps public and personal listings.
const upcomingListLimit = 200

// GuideDirectory resolves the guide profile owned by a user.
// guide.Service satisfies it.
type GuideDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*guide.Guide, error)
}

type Service interface {
	// Create opens a block on the calling user's own guide profile.
	Create(ctx context.Context, userID string, startAt, endAt time.Time) (*Block, error)

	// Mine lists the calling guide's upcoming blocks.
	Mine(ctx context.Context, userID string) ([]*Block, error)

	// ListByGuide lists a guide's upcoming blocks; public.
	ListByGuide(ctx context.Context, guideID string) ([]*Block, error)

	// Remove deletes one of the calling guide's own blocks.
	Remove(ctx context.Context, id, userID string) error
}

type service struct {
	repo   Repository
	guides GuideDirectory
	clock  clock.Clock
}

func NewService(repo Repository, guides GuideDirectory, clk clock.Clock) Service {
	return &service{
		repo:   repo,
		guides: guides,
		clock:  clk,
	}
}

func (s *service) Create(ctx context.Context, userID string, startAt, endAt time.Time) (*Block, error) {
	if !startAt.Before(endAt) {
		return nil, ErrInvalidRange
	}

	g, err := s.ownGuide(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A guide's blocks form a non-overlapping set; check against all of
	// them, past ones included.
	existing, err := s.repo.ListByGuide(ctx, g.ID, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		if booking.Overlaps(startAt, endAt, b.StartAt, b.EndAt) {
			return nil, ErrOverlap
		}
	}

	block := &Block{
		GuideID: g.ID,
		StartAt: startAt,
		EndAt:   endAt,
	}
	if err := s.repo.Insert(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *service) Mine(ctx context.Context, userID string) ([]*Block, error) {
	g, err := s.ownGuide(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByGuide(ctx, g.ID, s.clock.Now(), upcomingListLimit)
}

func (s *service) ListByGuide(ctx context.Context, guideID string) ([]*Block, error) {
	return s.repo.ListByGuide(ctx, guideID, s.clock.Now(), upcomingListLimit)
}

func (s *service) Remove(ctx context.Context, id, userID string) error {
	block, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	g, err := s.ownGuide(ctx, userID)
	if err != nil {
		return err
	}
	// Another guide's block looks like a missing one; its existence is not
	// the caller's business.
	if block.GuideID != g.ID {
		return ErrNotFound
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) ownGuide(ctx context.Context, userID string) (*guide.Guide, error) {
	g, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, guide.ErrNotFound) {
			return nil, ErrNotGuide
		}
		return nil, err
	}
	return g, nil
}
