package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepository is a Repository backed by process memory. It exists so
// the lifecycle logic can run unchanged against a non-durable store, and it
// backs the package tests. Per-guide mutexes give WithGuideLock the same
// exclusion the pgx implementation gets from advisory locks.
type memoryRepository struct {
	mu         sync.RWMutex
	bookings   map[string]*Booking
	guideLocks sync.Map // guideID -> *sync.Mutex
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		bookings: make(map[string]*Booking),
	}
}

func (r *memoryRepository) Insert(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now

	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryRepository) ListConfirmedByGuide(_ context.Context, guideID string) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Booking
	for _, b := range r.bookings {
		if b.GuideID == guideID && b.Status == StatusConfirmed {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Booking
	for _, b := range r.bookings {
		if filter.TravelerID != "" && b.TravelerID != filter.TravelerID {
			continue
		}
		if filter.GuideID != "" && b.GuideID != filter.GuideID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.StartFrom != nil && b.StartAt.Before(*filter.StartFrom) {
			continue
		}
		if filter.StartTo != nil && b.StartAt.After(*filter.StartTo) {
			continue
		}
		cp := *b
		matched = append(matched, &cp)
	}

	// Same ordering as the pgx implementation, so pages are stable.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartAt.After(matched[j].StartAt)
	})

	total := len(matched)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 20
	}
	offset := (page - 1) * size
	if offset >= total {
		return nil, total, nil
	}
	end := offset + size
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memoryRepository) CompareAndSetStatus(_ context.Context, id string, expected []Status, b *Booking) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[id]
	if !ok {
		return false, ErrNotFound
	}

	matches := false
	for _, st := range expected {
		if stored.Status == st {
			matches = true
			break
		}
	}
	if !matches {
		return false, nil
	}

	stored.Status = b.Status
	if b.CancelInfo != nil {
		info := *b.CancelInfo
		stored.CancelInfo = &info
	}
	stored.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memoryRepository) WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, locked Repository) error) error {
	v, _ := r.guideLocks.LoadOrStore(guideID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx, r)
}
