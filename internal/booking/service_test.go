package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/guide-booking-backend/internal/clock"
	"github.com/nekogravitycat/guide-booking-backend/internal/guide"
)

// fakeGuideDirectory serves fixed guide profiles.
type fakeGuideDirectory struct {
	guides map[string]*guide.Guide
}

func (f *fakeGuideDirectory) GetByID(_ context.Context, id string) (*guide.Guide, error) {
	g, ok := f.guides[id]
	if !ok {
		return nil, guide.ErrNotFound
	}
	return g, nil
}

// captureSink records emitted events.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

const (
	guideID     = "2f9a62a4-0a54-4c57-9f3a-53a1efc670d1"
	guideUserID = "user-guide"
	travelerID  = "user-traveler"
)

type fixture struct {
	svc  Service
	repo Repository
	sink *captureSink
	now  time.Time
}

func newFixture(t *testing.T, mutate func(*Policy)) *fixture {
	t.Helper()

	policy := DefaultPolicy()
	if mutate != nil {
		mutate(&policy)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	sink := &captureSink{}
	guides := &fakeGuideDirectory{guides: map[string]*guide.Guide{
		guideID: {ID: guideID, UserID: guideUserID, City: "Lisbon", PricePerHour: 50},
	}}

	return &fixture{
		svc:  NewService(repo, guides, policy, clock.NewFixed(now), sink),
		repo: repo,
		sink: sink,
		now:  now,
	}
}

func (f *fixture) create(t *testing.T, startOffset, endOffset time.Duration, price int64) *Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), CreateRequest{
		TravelerID: travelerID,
		GuideID:    guideID,
		StartAt:    f.now.Add(startOffset),
		EndAt:      f.now.Add(endOffset),
		Price:      price,
	})
	require.NoError(t, err)
	return b
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a pending booking", func(t *testing.T) {
		f := newFixture(t, nil)

		b := f.create(t, 48*time.Hour, 50*time.Hour, 100)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, StatusPending, b.Status)
		assert.Nil(t, b.CancelInfo)

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
	})

	t.Run("rejects an inverted or empty range", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    guideID,
			StartAt:    f.now.Add(2 * time.Hour),
			EndAt:      f.now.Add(1 * time.Hour),
			Price:      100,
		})
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = f.svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    guideID,
			StartAt:    f.now.Add(time.Hour),
			EndAt:      f.now.Add(time.Hour),
			Price:      100,
		})
		assert.ErrorIs(t, err, ErrInvalidRange, "zero-length range is invalid")
	})

	t.Run("rejects a non-positive price", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    guideID,
			StartAt:    f.now.Add(time.Hour),
			EndAt:      f.now.Add(2 * time.Hour),
			Price:      0,
		})
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("rejects an unknown guide", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    "c1ad9722-90c4-4013-a81f-e3cb27e1ee5f",
			StartAt:    f.now.Add(time.Hour),
			EndAt:      f.now.Add(2 * time.Hour),
			Price:      100,
		})
		assert.ErrorIs(t, err, ErrGuideNotFound)
	})

	t.Run("guides cannot book themselves", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.svc.Create(ctx, CreateRequest{
			TravelerID: guideUserID,
			GuideID:    guideID,
			StartAt:    f.now.Add(time.Hour),
			EndAt:      f.now.Add(2 * time.Hour),
			Price:      100,
		})
		assert.ErrorIs(t, err, ErrSelfBooking)
	})

	t.Run("overlapping pendings may coexist", func(t *testing.T) {
		f := newFixture(t, nil)

		f.create(t, 10*time.Hour, 12*time.Hour, 100)
		f.create(t, 11*time.Hour, 13*time.Hour, 100)
	})

	t.Run("rejects overlap with a confirmed booking by default", func(t *testing.T) {
		f := newFixture(t, nil)

		a := f.create(t, 10*time.Hour, 12*time.Hour, 100)
		_, err := f.svc.Confirm(ctx, a.ID, guideUserID)
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    guideID,
			StartAt:    f.now.Add(11 * time.Hour),
			EndAt:      f.now.Add(13 * time.Hour),
			Price:      100,
		})
		var overlapErr *OverlapError
		require.ErrorAs(t, err, &overlapErr)
		assert.Equal(t, a.ID, overlapErr.ConflictingID)
	})

	t.Run("confirmed-overlap rejection can be disabled", func(t *testing.T) {
		f := newFixture(t, func(p *Policy) { p.RejectConfirmedOverlapOnCreate = false })

		a := f.create(t, 10*time.Hour, 12*time.Hour, 100)
		_, err := f.svc.Confirm(ctx, a.ID, guideUserID)
		require.NoError(t, err)

		f.create(t, 11*time.Hour, 13*time.Hour, 100)
	})
}

func TestServiceConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms a pending booking and emits an event", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 10*time.Hour, 12*time.Hour, 100)

		got, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, got.Status)

		events := f.sink.byType(EventConfirmed)
		require.Len(t, events, 1)
		assert.Equal(t, b.ID, events[0].Booking.ID)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.svc.Confirm(ctx, "missing", guideUserID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("only the guide owner may confirm", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 10*time.Hour, 12*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, b.ID, travelerID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.Confirm(ctx, b.ID, "somebody-else")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("idempotent on an already confirmed booking", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 10*time.Hour, 12*time.Hour, 100)

		first, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)

		second, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)
		assert.Equal(t, first.Status, second.Status)

		// No second event for the repeat call.
		assert.Len(t, f.sink.byType(EventConfirmed), 1)
	})

	t.Run("cannot confirm a cancelled booking", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 48*time.Hour, 50*time.Hour, 100)

		_, err := f.svc.Cancel(ctx, b.ID, travelerID, false)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, b.ID, guideUserID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("rejects overlap against the confirmed set", func(t *testing.T) {
		f := newFixture(t, func(p *Policy) { p.RejectConfirmedOverlapOnCreate = false })

		a := f.create(t, 10*time.Hour, 12*time.Hour, 100)
		b := f.create(t, 11*time.Hour, 13*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, a.ID, guideUserID)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, b.ID, guideUserID)
		var overlapErr *OverlapError
		require.ErrorAs(t, err, &overlapErr)
		assert.Equal(t, a.ID, overlapErr.ConflictingID)

		// The losing booking is left untouched.
		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
	})

	t.Run("back-to-back slots both confirm", func(t *testing.T) {
		f := newFixture(t, nil)

		a := f.create(t, 10*time.Hour, 12*time.Hour, 100)
		b := f.create(t, 12*time.Hour, 14*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, a.ID, guideUserID)
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err, "touching ranges do not overlap")
	})
}

func TestServiceCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("traveler cancels a pending booking anytime", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 2*time.Hour, 4*time.Hour, 100)

		got, err := f.svc.Cancel(ctx, b.ID, travelerID, false)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		require.NotNil(t, got.CancelInfo)
		assert.Equal(t, RoleTraveler, got.CancelInfo.ActorRole)
		assert.Equal(t, f.now, got.CancelInfo.At)

		// 2 hours before start: lowest tier, no refund.
		assert.Equal(t, int64(0), got.CancelInfo.Settlement.RefundToTraveler)
		assert.Equal(t, int64(100), got.CancelInfo.Settlement.KeepByGuide)

		events := f.sink.byType(EventCancelled)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].Settlement)
		assert.Equal(t, int64(0), events[0].Settlement.RefundToTraveler)
	})

	t.Run("traveler cancelling confirmed inside the window is rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 10*time.Hour, 12*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, b.ID, travelerID, false)
		assert.ErrorIs(t, err, ErrWindowClosed)

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, stored.Status, "failed cancel changes nothing")
	})

	t.Run("force majeure bypasses the window with a full refund", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 1*time.Hour, 3*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)

		got, err := f.svc.Cancel(ctx, b.ID, travelerID, true)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.CancelInfo.Settlement.RefundToTraveler)
	})

	t.Run("guide cancels confirmed anytime, traveler refunded in full", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 2*time.Hour, 4*time.Hour, 100)

		_, err := f.svc.Confirm(ctx, b.ID, guideUserID)
		require.NoError(t, err)

		got, err := f.svc.Cancel(ctx, b.ID, guideUserID, false)
		require.NoError(t, err)
		assert.Equal(t, RoleGuide, got.CancelInfo.ActorRole)
		assert.Equal(t, int64(100), got.CancelInfo.Settlement.RefundToTraveler)
		assert.Equal(t, 50, got.CancelInfo.Settlement.PenaltyPercent, "late guide cancel carries the top penalty tier")
	})

	t.Run("strangers cannot cancel", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 10*time.Hour, 12*time.Hour, 100)

		_, err := f.svc.Cancel(ctx, b.ID, "somebody-else", false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("repeat cancel is idempotent and keeps the first settlement", func(t *testing.T) {
		f := newFixture(t, nil)
		b := f.create(t, 30*time.Hour, 32*time.Hour, 100)

		first, err := f.svc.Cancel(ctx, b.ID, travelerID, false)
		require.NoError(t, err)
		require.NotNil(t, first.CancelInfo)

		// Second cancel by the other party, with force majeure: still a
		// no-op returning the original record.
		second, err := f.svc.Cancel(ctx, b.ID, guideUserID, true)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, second.Status)
		assert.Equal(t, first.CancelInfo.ActorRole, second.CancelInfo.ActorRole)
		assert.Equal(t, first.CancelInfo.Settlement, second.CancelInfo.Settlement)

		assert.Len(t, f.sink.byType(EventCancelled), 1, "no second settlement event")
	})
}

// countingRepo counts reads and CAS writes passing through a Repository.
type countingRepo struct {
	Repository
	mu   sync.Mutex
	gets int
	cas  int
}

func (r *countingRepo) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	r.gets++
	r.mu.Unlock()
	return r.Repository.GetByID(ctx, id)
}

func (r *countingRepo) CompareAndSetStatus(ctx context.Context, id string, expected []Status, b *Booking) (bool, error) {
	r.mu.Lock()
	r.cas++
	r.mu.Unlock()
	return r.Repository.CompareAndSetStatus(ctx, id, expected, b)
}

// lockHandoffRepo hands a distinct repository to WithGuideLock callbacks so
// tests can tell lock-scoped statements apart from pool-scoped ones.
type lockHandoffRepo struct {
	*countingRepo
	locked *countingRepo
}

func (r *lockHandoffRepo) WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, locked Repository) error) error {
	return r.countingRepo.Repository.WithGuideLock(ctx, guideID, func(ctx context.Context, _ Repository) error {
		return fn(ctx, r.locked)
	})
}

// TestLockScopedStatements pins down that the re-read and the status write of
// Confirm and Cancel go through the repository WithGuideLock hands out. For
// the pgx implementation that repository is bound to the connection holding
// the advisory lock, which is what keeps a fully occupied pool from starving
// the lock holder.
func TestLockScopedStatements(t *testing.T) {
	ctx := context.Background()

	newCountedFixture := func(t *testing.T) (Service, *countingRepo, *countingRepo) {
		t.Helper()
		mem := NewMemoryRepository()
		outer := &countingRepo{Repository: mem}
		locked := &countingRepo{Repository: mem}
		repo := &lockHandoffRepo{countingRepo: outer, locked: locked}

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		guides := &fakeGuideDirectory{guides: map[string]*guide.Guide{
			guideID: {ID: guideID, UserID: guideUserID, PricePerHour: 50},
		}}
		svc := NewService(repo, guides, DefaultPolicy(), clock.NewFixed(now), &captureSink{})
		_, err := svc.Create(ctx, CreateRequest{
			TravelerID: travelerID,
			GuideID:    guideID,
			StartAt:    now.Add(30 * time.Hour),
			EndAt:      now.Add(32 * time.Hour),
			Price:      100,
		})
		require.NoError(t, err)
		return svc, outer, locked
	}

	bookingID := func(t *testing.T, svc Service) string {
		t.Helper()
		items, _, err := svc.List(ctx, Filter{TravelerID: travelerID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		return items[0].ID
	}

	t.Run("confirm", func(t *testing.T) {
		svc, outer, locked := newCountedFixture(t)
		id := bookingID(t, svc)

		_, err := svc.Confirm(ctx, id, guideUserID)
		require.NoError(t, err)

		assert.Equal(t, 1, locked.cas, "the status write runs under the lock")
		assert.GreaterOrEqual(t, locked.gets, 1, "the re-read runs under the lock")
		assert.Zero(t, outer.cas, "nothing is written outside the lock")
	})

	t.Run("cancel", func(t *testing.T) {
		svc, outer, locked := newCountedFixture(t)
		id := bookingID(t, svc)

		_, err := svc.Cancel(ctx, id, travelerID, false)
		require.NoError(t, err)

		assert.Equal(t, 1, locked.cas)
		assert.GreaterOrEqual(t, locked.gets, 1)
		assert.Zero(t, outer.cas)
	})
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	// Insert out of chronological order; listing must still come back newest
	// start first, so paging is deterministic.
	for _, startH := range []int{5, 1, 9, 3, 7} {
		f.create(t, time.Duration(startH)*time.Hour, time.Duration(startH+1)*time.Hour, 100)
	}

	page := func(n int) []time.Time {
		items, total, err := f.svc.List(ctx, Filter{TravelerID: travelerID, Page: n, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		starts := make([]time.Time, len(items))
		for i, b := range items {
			starts[i] = b.StartAt
		}
		return starts
	}

	assert.Equal(t, []time.Time{f.now.Add(9 * time.Hour), f.now.Add(7 * time.Hour)}, page(1))
	assert.Equal(t, []time.Time{f.now.Add(5 * time.Hour), f.now.Add(3 * time.Hour)}, page(2))
	assert.Equal(t, []time.Time{f.now.Add(1 * time.Hour)}, page(3))
}

// TestScenario_ConflictAndSettlement walks the end-to-end flow: a confirmed
// booking blocks an overlapping confirmation, then a timely cancellation
// splits the price per the middle tier.
func TestScenario_ConflictAndSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(p *Policy) { p.RejectConfirmedOverlapOnCreate = false })

	// Booking A [now+30h, now+32h), price 100.
	a := f.create(t, 30*time.Hour, 32*time.Hour, 100)
	_, err := f.svc.Confirm(ctx, a.ID, guideUserID)
	require.NoError(t, err)

	// Booking B overlaps A by one hour.
	b := f.create(t, 31*time.Hour, 33*time.Hour, 100)
	_, err = f.svc.Confirm(ctx, b.ID, guideUserID)
	var overlapErr *OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, a.ID, overlapErr.ConflictingID)

	// Traveler cancels A 30 hours before start: 50% refund tier.
	got, err := f.svc.Cancel(ctx, a.ID, travelerID, false)
	require.NoError(t, err)
	assert.Equal(t, 30, got.CancelInfo.Settlement.HoursBefore)
	assert.Equal(t, int64(50), got.CancelInfo.Settlement.RefundToTraveler)
	assert.Equal(t, int64(50), got.CancelInfo.Settlement.KeepByGuide)
}

// TestConcurrentConfirms stresses the concurrent-confirm race: for many rounds, two
// overlapping pending bookings are confirmed from two goroutines; exactly
// one must win each round no matter how the scheduler interleaves them.
func TestConcurrentConfirms(t *testing.T) {
	ctx := context.Background()

	const rounds = 100

	policy := DefaultPolicy()
	policy.RejectConfirmedOverlapOnCreate = false

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	sink := &captureSink{}

	guides := map[string]*guide.Guide{}
	for i := 0; i < rounds; i++ {
		id := fmt.Sprintf("guide-%d", i)
		guides[id] = &guide.Guide{ID: id, UserID: "owner-" + id, PricePerHour: 50}
	}
	svc := NewService(repo, &fakeGuideDirectory{guides: guides}, policy, clock.NewFixed(now), sink)

	for i := 0; i < rounds; i++ {
		gID := fmt.Sprintf("guide-%d", i)
		owner := "owner-" + gID

		mk := func(startH, endH int) string {
			b, err := svc.Create(ctx, CreateRequest{
				TravelerID: travelerID,
				GuideID:    gID,
				StartAt:    now.Add(time.Duration(startH) * time.Hour),
				EndAt:      now.Add(time.Duration(endH) * time.Hour),
				Price:      100,
			})
			require.NoError(t, err)
			return b.ID
		}
		aID := mk(10, 12)
		bID := mk(11, 13)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for _, id := range []string{aID, bID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := svc.Confirm(ctx, id, owner)
				results <- err
			}(id)
		}
		wg.Wait()
		close(results)

		var confirmed, conflicted int
		for err := range results {
			if err == nil {
				confirmed++
				continue
			}
			var overlapErr *OverlapError
			if errors.As(err, &overlapErr) {
				conflicted++
				continue
			}
			t.Fatalf("round %d: unexpected error: %v", i, err)
		}

		require.Equal(t, 1, confirmed, "round %d: exactly one confirm must win", i)
		require.Equal(t, 1, conflicted, "round %d: the loser must see the conflict", i)

		// The confirmed set invariant: no two confirmed bookings overlap.
		set, err := repo.ListConfirmedByGuide(ctx, gID)
		require.NoError(t, err)
		require.Len(t, set, 1)
	}
}
