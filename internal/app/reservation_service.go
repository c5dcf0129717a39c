package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// ReservationService orchestrates holds on equipment items.
type ReservationService struct {
	reservations ports.ReservationStore
	equipment    ports.EquipmentStore
	flags        ports.FeatureFlags
	cache        ports.Cache
	exec         *resilience.Executor
	logger       *slog.Logger

	now func() time.Time
}

// ReservationServiceConfig contains dependencies for the reservation service.
// Flags and Cache are optional.
type ReservationServiceConfig struct {
	Reservations ports.ReservationStore
	Equipment    ports.EquipmentStore
	Flags        ports.FeatureFlags
	Cache        ports.Cache
	Exec         *resilience.Executor
	Logger       *slog.Logger
}

// NewReservationService creates a reservation service with the provided dependencies.
func NewReservationService(cfg ReservationServiceConfig) *ReservationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ReservationService{
		reservations: cfg.Reservations,
		equipment:    cfg.Equipment,
		flags:        cfg.Flags,
		cache:        cfg.Cache,
		exec:         cfg.Exec,
		logger:       logger.With(slog.String("component", "reservation_service")),
		now:          time.Now,
	}
}

// ReserveRequest is the input for placing a hold.
type ReserveRequest struct {
	EquipmentID string
	BorrowerID  string
	StartAt     time.Time
	EndAt       time.Time
}

// Reserve places a hold on an item for a time window. Overlapping open
// reservations are rejected; a hold whose window has already begun marks
// the item reserved immediately.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*domain.Reservation, error) {
	if s.flags != nil && !s.flags.IsEnabled(ctx, "reservations_enabled", true) {
		return nil, domain.NewForbiddenError("reserve", "reservations are disabled")
	}

	reservation := &domain.Reservation{
		ID:          newID(),
		EquipmentID: req.EquipmentID,
		BorrowerID:  req.BorrowerID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Status:      domain.ReservationPending,
	}
	if err := reservation.Validate(); err != nil {
		return nil, err
	}

	item, existing, err := Parallel2(ctx,
		func(ctx context.Context) (*domain.Equipment, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
				return s.equipment.Get(ctx, req.EquipmentID)
			}, opctx("reservation_service", "get_equipment"))
		},
		func(ctx context.Context) ([]domain.Reservation, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Reservation, error) {
				return s.reservations.ListForEquipment(ctx, req.EquipmentID)
			}, opctx("reservation_service", "list_reservations"))
		},
	)
	if err != nil {
		return nil, err
	}

	if item.Status == domain.StatusRetired {
		return nil, domain.NewForbiddenError("reserve", "equipment is retired")
	}

	for i := range existing {
		r := &existing[i]
		if r.Open() && r.Overlaps(req.StartAt, req.EndAt) {
			return nil, domain.NewConflictError("reservation", "window overlaps an existing reservation")
		}
	}

	startsNow := !req.StartAt.After(s.now()) && req.EndAt.After(s.now())
	if startsNow && item.Status == domain.StatusAvailable {
		reservation.Status = domain.ReservationActive
	}

	created, err := resilience.RunManual(ctx, s.exec, func(ctx context.Context) (*domain.Reservation, error) {
		return s.reservations.Create(ctx, reservation)
	}, opctx("reservation_service", "create_reservation"))
	if err != nil {
		return nil, err
	}

	if created.Status == domain.ReservationActive {
		err := runVoid(ctx, s.exec, func(ctx context.Context) error {
			return s.equipment.SetStatus(ctx, req.EquipmentID, domain.StatusReserved)
		}, opctx("reservation_service", "hold_equipment"))
		if err != nil {
			return nil, err
		}
		s.invalidate(ctx)
	}

	logging.FromContext(ctx).InfoContext(ctx, "reservation placed",
		slog.String("reservation_id", created.ID),
		slog.String("equipment_id", created.EquipmentID),
		slog.String("status", string(created.Status)),
	)

	return created, nil
}

// Cancel withdraws a hold. Only the owning borrower may cancel; releasing
// the last open hold on a reserved item frees the item.
func (s *ReservationService) Cancel(ctx context.Context, id, borrowerID string) error {
	reservation, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Reservation, error) {
		return s.reservations.Get(ctx, id)
	}, opctx("reservation_service", "get_reservation"))
	if err != nil {
		return err
	}

	if reservation.BorrowerID != borrowerID {
		return domain.NewForbiddenError("cancel", "reservation belongs to another borrower")
	}
	if !reservation.Open() {
		return domain.NewConflictError("reservation", "already closed")
	}

	wasActive := reservation.Status == domain.ReservationActive

	err = runVoidManual(ctx, s.exec, func(ctx context.Context) error {
		return s.reservations.SetStatus(ctx, id, domain.ReservationCancelled)
	}, opctx("reservation_service", "cancel_reservation"))
	if err != nil {
		return err
	}

	if wasActive {
		if err := s.releaseIfUnheld(ctx, reservation.EquipmentID); err != nil {
			return err
		}
	}

	logging.FromContext(ctx).InfoContext(ctx, "reservation cancelled",
		slog.String("reservation_id", id),
	)

	return nil
}

// ListForEquipment returns an item's reservations, newest first.
func (s *ReservationService) ListForEquipment(ctx context.Context, equipmentID string) ([]domain.Reservation, error) {
	return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Reservation, error) {
		return s.reservations.ListForEquipment(ctx, equipmentID)
	}, opctx("reservation_service", "list_reservations"))
}

// releaseIfUnheld frees a reserved item once no open holds remain.
func (s *ReservationService) releaseIfUnheld(ctx context.Context, equipmentID string) error {
	item, remaining, err := Parallel2(ctx,
		func(ctx context.Context) (*domain.Equipment, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
				return s.equipment.Get(ctx, equipmentID)
			}, opctx("reservation_service", "get_equipment"))
		},
		func(ctx context.Context) ([]domain.Reservation, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Reservation, error) {
				return s.reservations.ListForEquipment(ctx, equipmentID)
			}, opctx("reservation_service", "list_reservations"))
		},
	)
	if err != nil {
		return err
	}

	if item.Status != domain.StatusReserved {
		return nil
	}

	for i := range remaining {
		if remaining[i].Open() {
			return nil
		}
	}

	err = runVoid(ctx, s.exec, func(ctx context.Context) error {
		return s.equipment.SetStatus(ctx, equipmentID, domain.StatusAvailable)
	}, opctx("reservation_service", "release_equipment"))
	if err != nil {
		return err
	}

	s.invalidate(ctx)

	return nil
}

func (s *ReservationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.DeletePrefix(ctx, equipmentCachePrefix); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "equipment cache invalidation failed",
			slog.Any("error", err))
	}
}
