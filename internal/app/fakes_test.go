package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestExec builds an executor with a single-attempt budget so failing
// fakes never sit in backoff.
func newTestExec() *resilience.Executor {
	return resilience.NewExecutor("test", resilience.Options{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}, discardLogger())
}

// memEquipmentStore is an in-memory ports.EquipmentStore.
type memEquipmentStore struct {
	mu        sync.Mutex
	items     map[string]*domain.Equipment
	listCalls int

	failSetStatus error
}

func newMemEquipmentStore(items ...*domain.Equipment) *memEquipmentStore {
	s := &memEquipmentStore{items: map[string]*domain.Equipment{}}
	for _, item := range items {
		copied := *item
		s.items[item.ID] = &copied
	}
	return s
}

func (s *memEquipmentStore) List(_ context.Context, filter ports.EquipmentFilter) (*ports.EquipmentPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	var items []domain.Equipment
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		items = append(items, *item)
	}

	total := len(items)
	if filter.PageSize > 0 && len(items) > filter.PageSize {
		items = items[:filter.PageSize]
	}

	return &ports.EquipmentPage{Items: items, TotalItems: total}, nil
}

func (s *memEquipmentStore) Get(_ context.Context, id string) (*domain.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("equipment", id)
	}
	copied := *item
	return &copied, nil
}

func (s *memEquipmentStore) Create(_ context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *e
	s.items[e.ID] = &copied
	result := copied
	return &result, nil
}

func (s *memEquipmentStore) Update(_ context.Context, e *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[e.ID]; !ok {
		return domain.NewNotFoundError("equipment", e.ID)
	}
	copied := *e
	s.items[e.ID] = &copied
	return nil
}

func (s *memEquipmentStore) SetStatus(_ context.Context, id string, status domain.EquipmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSetStatus != nil {
		return s.failSetStatus
	}

	item, ok := s.items[id]
	if !ok {
		return domain.NewNotFoundError("equipment", id)
	}
	item.Status = status
	return nil
}

func (s *memEquipmentStore) status(id string) domain.EquipmentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

// memLoanStore is an in-memory ports.LoanStore.
type memLoanStore struct {
	mu    sync.Mutex
	loans map[string]*domain.Loan
}

func newMemLoanStore(loans ...*domain.Loan) *memLoanStore {
	s := &memLoanStore{loans: map[string]*domain.Loan{}}
	for _, loan := range loans {
		copied := *loan
		s.loans[loan.ID] = &copied
	}
	return s
}

func (s *memLoanStore) List(_ context.Context, filter ports.LoanFilter) ([]domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loans []domain.Loan
	for _, loan := range s.loans {
		if filter.BorrowerID != "" && loan.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.EquipmentID != "" && loan.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.ActiveOnly && !loan.Active() {
			continue
		}
		if !filter.OverdueAsOf.IsZero() && !loan.Overdue(filter.OverdueAsOf) {
			continue
		}
		loans = append(loans, *loan)
	}
	return loans, nil
}

func (s *memLoanStore) Get(_ context.Context, id string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, domain.NewNotFoundError("loan", id)
	}
	copied := *loan
	return &copied, nil
}

func (s *memLoanStore) Create(_ context.Context, l *domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *l
	s.loans[l.ID] = &copied
	result := copied
	return &result, nil
}

func (s *memLoanStore) MarkReturned(_ context.Context, id string, returnedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return domain.NewNotFoundError("loan", id)
	}
	if loan.ReturnedAt != nil {
		return domain.NewConflictError("loan", "already returned")
	}
	loan.ReturnedAt = &returnedAt
	return nil
}

// memReservationStore is an in-memory ports.ReservationStore.
type memReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*domain.Reservation

	failSetStatus error
}

func newMemReservationStore(reservations ...*domain.Reservation) *memReservationStore {
	s := &memReservationStore{reservations: map[string]*domain.Reservation{}}
	for _, r := range reservations {
		copied := *r
		s.reservations[r.ID] = &copied
	}
	return s
}

func (s *memReservationStore) ListForEquipment(_ context.Context, equipmentID string) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Reservation
	for _, r := range s.reservations {
		if r.EquipmentID == equipmentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memReservationStore) Get(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id)
	}
	copied := *r
	return &copied, nil
}

func (s *memReservationStore) Create(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.reservations[r.ID] = &copied
	result := copied
	return &result, nil
}

func (s *memReservationStore) SetStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSetStatus != nil {
		return s.failSetStatus
	}

	r, ok := s.reservations[id]
	if !ok {
		return domain.NewNotFoundError("reservation", id)
	}
	r.Status = status
	return nil
}

func (s *memReservationStore) status(id string) domain.ReservationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id].Status
}

// memProfileStore is an in-memory ports.ProfileStore.
type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.BorrowerProfile
}

func newMemProfileStore(profiles ...*domain.BorrowerProfile) *memProfileStore {
	s := &memProfileStore{profiles: map[string]*domain.BorrowerProfile{}}
	for _, p := range profiles {
		copied := *p
		s.profiles[p.ID] = &copied
	}
	return s
}

func (s *memProfileStore) Get(_ context.Context, id string) (*domain.BorrowerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.NewNotFoundError("profile", id)
	}
	copied := *p
	return &copied, nil
}

func (s *memProfileStore) Put(_ context.Context, p *domain.BorrowerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.profiles[p.ID] = &copied
	return nil
}

// memCache is an in-memory ports.Cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: cache key %q", domain.ErrNotFound, key)
	}
	return data, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// memFlags is a map-backed ports.FeatureFlags.
type memFlags struct {
	values map[string]any
}

func (f *memFlags) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := f.values[flag].(bool); ok {
		return v
	}
	return defaultValue
}

func (f *memFlags) GetString(_ context.Context, flag string, defaultValue string) string {
	if v, ok := f.values[flag].(string); ok {
		return v
	}
	return defaultValue
}

func (f *memFlags) GetInt(_ context.Context, flag string, defaultValue int) int {
	if v, ok := f.values[flag].(int); ok {
		return v
	}
	return defaultValue
}

var (
	_ ports.EquipmentStore   = (*memEquipmentStore)(nil)
	_ ports.LoanStore        = (*memLoanStore)(nil)
	_ ports.ReservationStore = (*memReservationStore)(nil)
	_ ports.ProfileStore     = (*memProfileStore)(nil)
	_ ports.Cache            = (*memCache)(nil)
	_ ports.FeatureFlags     = (*memFlags)(nil)
)
