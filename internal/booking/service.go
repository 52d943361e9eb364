package booking

import (
	"context"
	"errors"
	"time"

	"github.com/nekogravitycat/guide-booking-backend/internal/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
)

// GuideDirectory resolves guide profiles for validation and authorization.
// guide.Service satisfies it.
type GuideDirectory interface {
	GetByID(ctx context.Context, id string) (*guide.Guide, error)
}

type CreateRequest struct {
	TravelerID string
	GuideID    string
	StartAt    time.Time
	EndAt      time.Time
	Price      int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id, actorID string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Confirm(ctx context.Context, id, actorID string) (*Booking, error)
	Cancel(ctx context.Context, id, actorID string, forceMajeure bool) (*Booking, error)

	// CancellationPolicy exposes the deployed policy tables for the public
	// policy endpoint.
	CancellationPolicy() Policy
}

type service struct {
	repo   Repository
	guides GuideDirectory
	policy Policy
	clock  clock.Clock
	sink   Sink
}

func NewService(repo Repository, guides GuideDirectory, policy Policy, clk clock.Clock, sink Sink) Service {
	return &service{
		repo:   repo,
		guides: guides,
		policy: policy,
		clock:  clk,
		sink:   sink,
	}
}

// casAttempts bounds internal retries of transient storage conflicts.
// Business-rule failures are never retried.
const casAttempts = 3

// errStatusMoved signals that the status changed between read and CAS;
// the operation re-reads and re-applies its rules on the next attempt.
var errStatusMoved = errors.New("booking status moved concurrently")

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if !req.StartAt.Before(req.EndAt) {
		return nil, ErrInvalidRange
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	g, err := s.guides.GetByID(ctx, req.GuideID)
	if err != nil {
		if errors.Is(err, guide.ErrNotFound) {
			return nil, ErrGuideNotFound
		}
		return nil, err
	}
	if g.UserID == req.TravelerID {
		return nil, ErrSelfBooking
	}

	// Pending bookings may overlap freely; only the confirmed calendar can
	// block creation, and only when the deployment opts in.
	if s.policy.RejectConfirmedOverlapOnCreate {
		confirmed, err := s.repo.ListConfirmedByGuide(ctx, req.GuideID)
		if err != nil {
			return nil, err
		}
		if c := firstOverlap(confirmed, req.StartAt, req.EndAt); c != nil {
			return nil, &OverlapError{ConflictingID: c.ID}
		}
	}

	b := &Booking{
		GuideID:    req.GuideID,
		TravelerID: req.TravelerID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Price:      req.Price,
		Status:     StatusPending,
	}

	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *service) GetByID(ctx context.Context, id, actorID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.actorRole(ctx, b, actorID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Confirm(ctx context.Context, id, actorID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := s.guides.GetByID(ctx, b.GuideID)
	if err != nil {
		return nil, err
	}
	// Only the guide's owner may confirm.
	if g.UserID != actorID {
		return nil, ErrForbidden
	}

	// Already confirmed: idempotent success without re-checking overlap.
	if b.Status == StatusConfirmed {
		return b, nil
	}
	if b.Status == StatusCancelled {
		return nil, ErrInvalidTransition
	}

	var (
		result    *Booking
		committed bool
	)

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := s.repo.WithGuideLock(ctx, b.GuideID, func(ctx context.Context, locked Repository) error {
			fresh, err := locked.GetByID(ctx, id)
			if err != nil {
				return err
			}
			switch fresh.Status {
			case StatusConfirmed:
				result = fresh
				return nil
			case StatusCancelled:
				return ErrInvalidTransition
			}

			confirmed, err := locked.ListConfirmedByGuide(ctx, fresh.GuideID)
			if err != nil {
				return err
			}
			if c := firstOverlap(confirmed, fresh.StartAt, fresh.EndAt); c != nil {
				return &OverlapError{ConflictingID: c.ID}
			}

			updated := *fresh
			updated.Status = StatusConfirmed

			swapped, err := locked.CompareAndSetStatus(ctx, id, []Status{StatusPending}, &updated)
			if err != nil {
				return err
			}
			if !swapped {
				return errStatusMoved
			}

			result = &updated
			committed = true
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, errStatusMoved) || IsTransientError(err) {
			result, committed = nil, false
			if attempt == casAttempts-1 {
				return nil, ErrUnavailable
			}
			continue
		}
		return nil, err
	}

	if result == nil {
		return nil, ErrUnavailable
	}

	if committed {
		s.sink.Emit(Event{Type: EventConfirmed, Booking: *result})
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, id, actorID string, forceMajeure bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role, err := s.actorRole(ctx, b, actorID)
	if err != nil {
		return nil, err
	}

	// Repeat cancel is an idempotent success: the stored record is returned
	// unchanged and no second settlement is computed.
	if b.Status == StatusCancelled {
		return b, nil
	}

	now := s.clock.Now()
	hours := HoursBefore(now, b.StartAt)
	settlement := s.policy.Evaluate(hours, role, forceMajeure, b.Price)

	var (
		result    *Booking
		committed bool
	)

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := s.repo.WithGuideLock(ctx, b.GuideID, func(ctx context.Context, locked Repository) error {
			fresh, err := locked.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if fresh.Status == StatusCancelled {
				// A concurrent cancel won; its CancelInfo stands.
				result = fresh
				return nil
			}

			// Travelers can only back out of a confirmed booking while the
			// cancellation window is open. Force majeure bypasses the window
			// so the full-refund override stays reachable.
			if role == RoleTraveler && fresh.Status == StatusConfirmed &&
				!forceMajeure && hours < s.policy.MinCancelHours {
				return ErrWindowClosed
			}

			updated := *fresh
			updated.Status = StatusCancelled
			updated.CancelInfo = &CancelInfo{
				At:         now,
				ActorRole:  role,
				Settlement: settlement,
			}

			swapped, err := locked.CompareAndSetStatus(ctx, id,
				[]Status{StatusPending, StatusConfirmed}, &updated)
			if err != nil {
				return err
			}
			if !swapped {
				return errStatusMoved
			}

			result = &updated
			committed = true
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, errStatusMoved) || IsTransientError(err) {
			result, committed = nil, false
			if attempt == casAttempts-1 {
				return nil, ErrUnavailable
			}
			continue
		}
		return nil, err
	}

	if result == nil {
		return nil, ErrUnavailable
	}

	if committed {
		s.sink.Emit(Event{Type: EventCancelled, Booking: *result, Settlement: &settlement})
	}
	return result, nil
}

func (s *service) CancellationPolicy() Policy {
	return s.policy
}

// actorRole determines which side of the booking the actor is on.
func (s *service) actorRole(ctx context.Context, b *Booking, actorID string) (Role, error) {
	if actorID == b.TravelerID {
		return RoleTraveler, nil
	}

	g, err := s.guides.GetByID(ctx, b.GuideID)
	if err != nil {
		return "", err
	}
	if g.UserID == actorID {
		return RoleGuide, nil
	}
	return "", ErrForbidden
}

func firstOverlap(confirmed []*Booking, startAt, endAt time.Time) *Booking {
	for _, c := range confirmed {
		if Overlaps(startAt, endAt, c.StartAt, c.EndAt) {
			return c
		}
	}
	return nil
}
