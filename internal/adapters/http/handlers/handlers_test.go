package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/adapters/http/middleware"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixture holds the in-memory stores behind a fully wired API router.
type fixture struct {
	engine       *gin.Engine
	equipment    *stubEquipmentStore
	loans        *stubLoanStore
	reservations *stubReservationStore
	profiles     *stubProfileStore
}

// newFixture wires real application services over in-memory stores and
// registers every route the way the router does, auth included.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := resilience.NewExecutor("test", resilience.Options{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}, logger)

	f := &fixture{
		equipment:    newStubEquipmentStore(),
		loans:        newStubLoanStore(),
		reservations: newStubReservationStore(),
		profiles:     newStubProfileStore(),
	}

	equipmentSvc := app.NewEquipmentService(app.EquipmentServiceConfig{
		Equipment: f.equipment,
		Loans:     f.loans,
		Exec:      exec,
		Logger:    logger,
	})
	loanSvc := app.NewLoanService(app.LoanServiceConfig{
		Loans:        f.loans,
		Equipment:    f.equipment,
		Reservations: f.reservations,
		Profiles:     f.profiles,
		Exec:         exec,
		Logger:       logger,
	})
	reservationSvc := app.NewReservationService(app.ReservationServiceConfig{
		Reservations: f.reservations,
		Equipment:    f.equipment,
		Exec:         exec,
		Logger:       logger,
	})
	profileSvc := app.NewProfileService(app.ProfileServiceConfig{
		Profiles: f.profiles,
		Exec:     exec,
		Logger:   logger,
	})

	f.engine = gin.New()
	api := f.engine.Group("/api/v1")

	NewEquipmentHandler(equipmentSvc).RegisterEquipmentRoutes(api, middleware.RequireRole(nil, "staff"))

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(nil))
	NewLoanHandler(loanSvc).RegisterLoanRoutes(authed)
	NewReservationHandler(reservationSvc).RegisterReservationRoutes(authed)
	NewProfileHandler(profileSvc).RegisterProfileRoutes(authed)

	return f
}

// do performs one request against the fixture's engine. A non-empty subject
// becomes the gateway identity header; roles go in comma-separated.
func (f *fixture) do(method, path, subject, roles, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-User-ID", subject)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	return w
}

func (f *fixture) seedEquipment(items ...*domain.Equipment) {
	for _, item := range items {
		_, _ = f.equipment.Create(context.Background(), item)
	}
}

func (f *fixture) seedProfile(p *domain.BorrowerProfile) {
	_ = f.profiles.Put(context.Background(), p)
}

// stubEquipmentStore is an in-memory ports.EquipmentStore.
type stubEquipmentStore struct {
	mu    sync.Mutex
	items map[string]*domain.Equipment
}

func newStubEquipmentStore() *stubEquipmentStore {
	return &stubEquipmentStore{items: map[string]*domain.Equipment{}}
}

func (s *stubEquipmentStore) List(_ context.Context, filter ports.EquipmentFilter) (*ports.EquipmentPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Equipment
	for _, item := range s.items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		items = append(items, *item)
	}

	return &ports.EquipmentPage{Items: items, TotalItems: len(items)}, nil
}

func (s *stubEquipmentStore) Get(_ context.Context, id string) (*domain.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("equipment", id)
	}
	copied := *item
	return &copied, nil
}

func (s *stubEquipmentStore) Create(_ context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *e
	s.items[e.ID] = &copied
	result := copied
	return &result, nil
}

func (s *stubEquipmentStore) Update(_ context.Context, e *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[e.ID]; !ok {
		return domain.NewNotFoundError("equipment", e.ID)
	}
	copied := *e
	s.items[e.ID] = &copied
	return nil
}

func (s *stubEquipmentStore) SetStatus(_ context.Context, id string, status domain.EquipmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.NewNotFoundError("equipment", id)
	}
	item.Status = status
	return nil
}

// stubLoanStore is an in-memory ports.LoanStore.
type stubLoanStore struct {
	mu    sync.Mutex
	loans map[string]*domain.Loan
}

func newStubLoanStore() *stubLoanStore {
	return &stubLoanStore{loans: map[string]*domain.Loan{}}
}

func (s *stubLoanStore) List(_ context.Context, filter ports.LoanFilter) ([]domain.Loan, error) {
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

func (s *stubLoanStore) Get(_ context.Context, id string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, domain.NewNotFoundError("loan", id)
	}
	copied := *loan
	return &copied, nil
}

func (s *stubLoanStore) Create(_ context.Context, l *domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *l
	s.loans[l.ID] = &copied
	result := copied
	return &result, nil
}

func (s *stubLoanStore) MarkReturned(_ context.Context, id string, returnedAt time.Time) error {
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

// stubReservationStore is an in-memory ports.ReservationStore.
type stubReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*domain.Reservation
}

func newStubReservationStore() *stubReservationStore {
	return &stubReservationStore{reservations: map[string]*domain.Reservation{}}
}

func (s *stubReservationStore) ListForEquipment(_ context.Context, equipmentID string) ([]domain.Reservation, error) {
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

func (s *stubReservationStore) Get(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("reservation", id)
	}
	copied := *r
	return &copied, nil
}

func (s *stubReservationStore) Create(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.reservations[r.ID] = &copied
	result := copied
	return &result, nil
}

func (s *stubReservationStore) SetStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return domain.NewNotFoundError("reservation", id)
	}
	r.Status = status
	return nil
}

// stubProfileStore is an in-memory ports.ProfileStore.
type stubProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.BorrowerProfile
}

func newStubProfileStore() *stubProfileStore {
	return &stubProfileStore{profiles: map[string]*domain.BorrowerProfile{}}
}

func (s *stubProfileStore) Get(_ context.Context, id string) (*domain.BorrowerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.NewNotFoundError("profile", id)
	}
	copied := *p
	return &copied, nil
}

func (s *stubProfileStore) Put(_ context.Context, p *domain.BorrowerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.profiles[p.ID] = &copied
	return nil
}

var (
	_ ports.EquipmentStore   = (*stubEquipmentStore)(nil)
	_ ports.LoanStore        = (*stubLoanStore)(nil)
	_ ports.ReservationStore = (*stubReservationStore)(nil)
	_ ports.ProfileStore     = (*stubProfileStore)(nil)
)

func fullProfile(id string) *domain.BorrowerProfile {
	return &domain.BorrowerProfile{
		ID:         id,
		Name:       "Mia Chen",
		Email:      "mia@campus.edu",
		Department: "Media Lab",
	}
}

func camera(id string) *domain.Equipment {
	return &domain.Equipment{
		ID:       id,
		Name:     "Canon EOS R6",
		Category: "camera",
		Location: "Media Lab",
		Status:   domain.StatusAvailable,
	}
}

// get is a shorthand for unauthenticated GETs.
func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, path, "", "", "")
}
