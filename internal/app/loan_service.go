package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	appctx "github.com/mkarlsen/equiploan/internal/app/context"
	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// defaultMaxActiveLoans bounds concurrent loans per borrower unless the
// settings document overrides it.
const defaultMaxActiveLoans = 5

// LoanService orchestrates the borrow and return workflows. Both run
// through the transactional pipeline: state transitions are verified
// against the store, and side effects (item status, reservation
// fulfillment, cache invalidation) are staged and committed together.
type LoanService struct {
	loans        ports.LoanStore
	equipment    ports.EquipmentStore
	reservations ports.ReservationStore
	profiles     ports.ProfileStore
	flags        ports.FeatureFlags
	cache        ports.Cache
	exec         *resilience.Executor
	pipeline     *Executor
	logger       *slog.Logger

	now func() time.Time
}

// LoanServiceConfig contains dependencies for the loan service.
// Flags and Cache are optional.
type LoanServiceConfig struct {
	Loans        ports.LoanStore
	Equipment    ports.EquipmentStore
	Reservations ports.ReservationStore
	Profiles     ports.ProfileStore
	Flags        ports.FeatureFlags
	Cache        ports.Cache
	Exec         *resilience.Executor
	Logger       *slog.Logger
}

// NewLoanService creates a loan service with the provided dependencies.
func NewLoanService(cfg LoanServiceConfig) *LoanService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "loan_service"))

	return &LoanService{
		loans:        cfg.Loans,
		equipment:    cfg.Equipment,
		reservations: cfg.Reservations,
		profiles:     cfg.Profiles,
		flags:        cfg.Flags,
		cache:        cfg.Cache,
		exec:         cfg.Exec,
		pipeline:     NewExecutor(logger),
		logger:       logger,
		now:          time.Now,
	}
}

// BorrowRequest is the input for the borrow workflow.
type BorrowRequest struct {
	EquipmentID string
	BorrowerID  string
	DueAt       time.Time
}

// Borrow hands an item to a borrower. The request context memoizes the
// equipment and reservation lookups across pipeline steps, and the archive
// step commits the status transitions as one staged batch with rollback.
func (s *LoanService) Borrow(ctx context.Context, req BorrowRequest) (*domain.Loan, error) {
	rc := appctx.New(ctx)
	ctx = appctx.WithContext(ctx, rc)

	op := Operation[BorrowRequest, *domain.Loan, *domain.Loan, *domain.Loan]{
		Name: "borrow_equipment",

		Validate: func(ctx context.Context, req BorrowRequest) error {
			draft := domain.Loan{
				EquipmentID: req.EquipmentID,
				BorrowerID:  req.BorrowerID,
				BorrowedAt:  s.now(),
				DueAt:       req.DueAt,
			}
			if err := draft.Validate(); err != nil {
				return err
			}

			item, profile, err := Parallel2(ctx,
				func(ctx context.Context) (*domain.Equipment, error) {
					return s.fetchEquipment(rc, req.EquipmentID)
				},
				func(ctx context.Context) (*domain.BorrowerProfile, error) {
					return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.BorrowerProfile, error) {
						return s.profiles.Get(ctx, req.BorrowerID)
					}, opctx("loan_service", "get_profile"))
				},
			)
			if err != nil {
				return err
			}

			if !profile.Complete() {
				return domain.NewProfileIncompleteError(profile.ID, profile.MissingFields())
			}

			if err := s.checkLoanLimit(ctx, req.BorrowerID); err != nil {
				return err
			}

			reservation, err := s.openReservation(rc, req.EquipmentID)
			if err != nil {
				return err
			}

			return item.CanBorrow(req.BorrowerID, reservation)
		},

		Perform: func(ctx context.Context, req BorrowRequest) (*domain.Loan, error) {
			loan := &domain.Loan{
				ID:          newID(),
				EquipmentID: req.EquipmentID,
				BorrowerID:  req.BorrowerID,
				BorrowedAt:  s.now(),
				DueAt:       req.DueAt,
			}

			return resilience.RunManual(ctx, s.exec, func(ctx context.Context) (*domain.Loan, error) {
				return s.loans.Create(ctx, loan)
			}, opctx("loan_service", "create_loan"))
		},

		Verify: func(ctx context.Context, _ BorrowRequest, created *domain.Loan) (*domain.Loan, error) {
			stored, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Loan, error) {
				return s.loans.Get(ctx, created.ID)
			}, opctx("loan_service", "verify_loan"))
			if err != nil {
				return nil, err
			}

			if !stored.Active() {
				return nil, fmt.Errorf("loan %s was stored already closed", stored.ID)
			}

			return stored, nil
		},

		Archive: func(ctx context.Context, req BorrowRequest, _ *domain.Loan) error {
			item, err := s.fetchEquipment(rc, req.EquipmentID)
			if err != nil {
				return err
			}

			if err := rc.AddAction(&setEquipmentStatusAction{
				store:    s.equipment,
				exec:     s.exec,
				id:       req.EquipmentID,
				to:       domain.StatusLoaned,
				previous: item.Status,
			}); err != nil {
				return err
			}

			reservation, err := s.openReservation(rc, req.EquipmentID)
			if err != nil {
				return err
			}
			if reservation != nil && reservation.BorrowerID == req.BorrowerID {
				if err := rc.AddAction(&setReservationStatusAction{
					store:    s.reservations,
					exec:     s.exec,
					id:       reservation.ID,
					to:       domain.ReservationFulfilled,
					previous: reservation.Status,
				}); err != nil {
					return err
				}
			}

			if err := rc.AddAction(&invalidateCacheAction{
				cache:  s.cache,
				prefix: equipmentCachePrefix,
			}); err != nil {
				return err
			}

			return rc.Commit(ctx)
		},

		Respond: func(ctx context.Context, _ BorrowRequest, loan *domain.Loan) (*domain.Loan, error) {
			logging.FromContext(ctx).InfoContext(ctx, "equipment borrowed",
				slog.String("loan_id", loan.ID),
				slog.String("equipment_id", loan.EquipmentID),
				slog.String("borrower_id", loan.BorrowerID),
				slog.Time("due_at", loan.DueAt),
			)

			return loan, nil
		},
	}

	return Execute(ctx, s.pipeline, op, req)
}

// Return closes an open loan and releases the item back into circulation.
func (s *LoanService) Return(ctx context.Context, loanID string) (*domain.Loan, error) {
	op := Operation[string, *domain.Loan, *domain.Loan, *domain.Loan]{
		Name: "return_equipment",

		Validate: func(ctx context.Context, loanID string) error {
			loan, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Loan, error) {
				return s.loans.Get(ctx, loanID)
			}, opctx("loan_service", "get_loan"))
			if err != nil {
				return err
			}

			if !loan.Active() {
				return domain.NewConflictError("loan", "already returned")
			}

			return nil
		},

		Perform: func(ctx context.Context, loanID string) (*domain.Loan, error) {
			err := runVoidManual(ctx, s.exec, func(ctx context.Context) error {
				return s.loans.MarkReturned(ctx, loanID, s.now())
			}, opctx("loan_service", "mark_returned"))
			if err != nil {
				return nil, err
			}

			return nil, nil
		},

		Verify: func(ctx context.Context, loanID string, _ *domain.Loan) (*domain.Loan, error) {
			loan, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Loan, error) {
				return s.loans.Get(ctx, loanID)
			}, opctx("loan_service", "verify_return"))
			if err != nil {
				return nil, err
			}

			if loan.Active() {
				return nil, fmt.Errorf("loan %s still reports as open", loanID)
			}

			return loan, nil
		},

		Archive: func(ctx context.Context, _ string, loan *domain.Loan) error {
			err := runVoid(ctx, s.exec, func(ctx context.Context) error {
				return s.equipment.SetStatus(ctx, loan.EquipmentID, domain.StatusAvailable)
			}, opctx("loan_service", "release_equipment"))
			if err != nil {
				return err
			}

			if s.cache != nil {
				if err := s.cache.DeletePrefix(ctx, equipmentCachePrefix); err != nil {
					logging.FromContext(ctx).WarnContext(ctx, "equipment cache invalidation failed",
						slog.Any("error", err))
				}
			}

			return nil
		},

		Respond: func(ctx context.Context, _ string, loan *domain.Loan) (*domain.Loan, error) {
			logging.FromContext(ctx).InfoContext(ctx, "equipment returned",
				slog.String("loan_id", loan.ID),
				slog.String("equipment_id", loan.EquipmentID),
			)

			return loan, nil
		},
	}

	return Execute(ctx, s.pipeline, op, loanID)
}

// List returns loans matching the filter.
func (s *LoanService) List(ctx context.Context, filter ports.LoanFilter) ([]domain.Loan, error) {
	return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Loan, error) {
		return s.loans.List(ctx, filter)
	}, opctx("loan_service", "list_loans"))
}

// Get retrieves one loan by ID.
func (s *LoanService) Get(ctx context.Context, id string) (*domain.Loan, error) {
	return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Loan, error) {
		return s.loans.Get(ctx, id)
	}, opctx("loan_service", "get_loan"))
}

// ListOverdue returns open loans past their due date.
func (s *LoanService) ListOverdue(ctx context.Context) ([]domain.Loan, error) {
	return s.List(ctx, ports.LoanFilter{OverdueAsOf: s.now()})
}

// fetchEquipment memoizes the equipment lookup for the duration of one
// borrow request, so validate and archive observe the same snapshot.
func (s *LoanService) fetchEquipment(rc *appctx.RequestContext, id string) (*domain.Equipment, error) {
	value, err := rc.GetOrFetch("equipment:"+id, func(ctx context.Context) (any, error) {
		return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
			return s.equipment.Get(ctx, id)
		}, opctx("loan_service", "get_equipment"))
	})
	if err != nil {
		return nil, err
	}

	return value.(*domain.Equipment), nil
}

// openReservation returns the open reservation covering now, if any.
// Memoized per request; may return nil with no error.
func (s *LoanService) openReservation(rc *appctx.RequestContext, equipmentID string) (*domain.Reservation, error) {
	value, err := rc.GetOrFetch("reservations:"+equipmentID, func(ctx context.Context) (any, error) {
		return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Reservation, error) {
			return s.reservations.ListForEquipment(ctx, equipmentID)
		}, opctx("loan_service", "list_reservations"))
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	reservations := value.([]domain.Reservation)
	for i := range reservations {
		r := &reservations[i]
		if r.Open() && r.Overlaps(now, now.Add(time.Nanosecond)) {
			return r, nil
		}
	}

	return nil, nil
}

// checkLoanLimit enforces the per-borrower loan ceiling from the settings
// document.
func (s *LoanService) checkLoanLimit(ctx context.Context, borrowerID string) error {
	limit := defaultMaxActiveLoans
	if s.flags != nil {
		limit = s.flags.GetInt(ctx, "max_active_loans", defaultMaxActiveLoans)
	}

	active, err := resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Loan, error) {
		return s.loans.List(ctx, ports.LoanFilter{BorrowerID: borrowerID, ActiveOnly: true})
	}, opctx("loan_service", "count_active_loans"))
	if err != nil {
		return err
	}

	if len(active) >= limit {
		return domain.NewConflictErrorWithDetails("loan", "loan limit reached",
			fmt.Sprintf("%d of %d loans in use", len(active), limit))
	}

	return nil
}
