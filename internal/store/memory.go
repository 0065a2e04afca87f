package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeserve/internal/domain"
)

var ErrNotFound = errors.New("booking not found")

// BookingStore is the authoritative booking state held by the reference
// service. Every transition goes through Apply so the domain rules are the
// single gate.
type BookingStore interface {
	Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, email string) ([]domain.Booking, error)
	ListByWorker(ctx context.Context, email string) ([]domain.Booking, error)
	Apply(ctx context.Context, id string, actor domain.Actor, action domain.Action, reason string) (*domain.Booking, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
	now      func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock fixes the store's clock, for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		bookings: make(map[string]*domain.Booking),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	now := s.now()
	b := &domain.Booking{
		ID:            uuid.NewString(),
		Status:        domain.StatusPending,
		CustomerID:    draft.CustomerID,
		CustomerEmail: draft.CustomerEmail,
		WorkerID:      draft.WorkerID,
		WorkerEmail:   draft.WorkerEmail,
		ServiceType:   draft.ServiceType,
		BookingDate:   draft.BookingDate,
		Address:       draft.Address,
		Notes:         draft.Notes,
		Price:         draft.Price,
		ServiceFee:    draft.ServiceFee,
		TotalAmount:   draft.TotalAmount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.bookings[b.ID] = b
	s.mu.Unlock()

	return clone(b), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (s *MemoryStore) ListByCustomer(_ context.Context, email string) ([]domain.Booking, error) {
	return s.list(func(b *domain.Booking) bool { return b.CustomerEmail == email }), nil
}

func (s *MemoryStore) ListByWorker(_ context.Context, email string) ([]domain.Booking, error) {
	return s.list(func(b *domain.Booking) bool { return b.WorkerEmail == email }), nil
}

func (s *MemoryStore) list(match func(*domain.Booking) bool) []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, *clone(b))
		}
	}
	return out
}

// Apply runs one transition under the store lock. Concurrent actors are
// serialized here; last accepted write wins and clients reconcile by
// re-reading.
func (s *MemoryStore) Apply(_ context.Context, id string, actor domain.Actor, action domain.Action, reason string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := clone(current)
	if err := domain.Apply(next, actor, action, reason, s.now()); err != nil {
		return nil, err
	}
	s.bookings[id] = next

	return clone(next), nil
}

func clone(b *domain.Booking) *domain.Booking {
	cp := *b
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

var _ BookingStore = (*MemoryStore)(nil)
