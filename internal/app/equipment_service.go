package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// Cache keys for equipment read models. Mutations invalidate the whole
// prefix rather than tracking individual entries.
const (
	equipmentCachePrefix = "equipment/"
	equipmentListingKey  = equipmentCachePrefix + "listing"
	equipmentItemPrefix  = equipmentCachePrefix + "item/"
	cacheWarmWorkers     = 4
)

// EquipmentService orchestrates catalog browsing and inventory management.
// It depends on port interfaces, not concrete implementations.
type EquipmentService struct {
	equipment ports.EquipmentStore
	loans     ports.LoanStore
	cache     ports.Cache
	exec      *resilience.Executor
	pipeline  *Executor
	logger    *slog.Logger

	now func() time.Time
}

// EquipmentServiceConfig contains dependencies for the equipment service.
// Cache is optional; without it every read goes to the document store.
type EquipmentServiceConfig struct {
	Equipment ports.EquipmentStore
	Loans     ports.LoanStore
	Cache     ports.Cache
	Exec      *resilience.Executor
	Logger    *slog.Logger
}

// NewEquipmentService creates an equipment service with the provided dependencies.
func NewEquipmentService(cfg EquipmentServiceConfig) *EquipmentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "equipment_service"))

	return &EquipmentService{
		equipment: cfg.Equipment,
		loans:     cfg.Loans,
		cache:     cfg.Cache,
		exec:      cfg.Exec,
		pipeline:  NewExecutor(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns a filtered page of equipment. The unfiltered first page is
// the dashboard's default view, so that one is served from the cache.
func (s *EquipmentService) List(ctx context.Context, filter ports.EquipmentFilter) (*ports.EquipmentPage, error) {
	cacheable := s.cache != nil && filter == (ports.EquipmentFilter{})

	if cacheable {
		if data, err := s.cache.Get(ctx, equipmentListingKey); err == nil {
			var page ports.EquipmentPage
			if json.Unmarshal(data, &page) == nil {
				return &page, nil
			}
		}
	}

	page, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*ports.EquipmentPage, error) {
		return s.equipment.List(ctx, filter)
	}, opctx("equipment_service", "list_equipment"))
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, equipmentListingKey, data, 0); err != nil {
				logging.FromContext(ctx).DebugContext(ctx, "listing cache write failed",
					slog.Any("error", err))
			}
		}
	}

	return page, nil
}

// Get retrieves one item, serving repeat reads from the cache.
func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, equipmentItemPrefix+id); err == nil {
			var item domain.Equipment
			if json.Unmarshal(data, &item) == nil {
				return &item, nil
			}
		}
	}

	item, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
		return s.equipment.Get(ctx, id)
	}, opctx("equipment_service", "get_equipment"))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(item); err == nil {
			_ = s.cache.Set(ctx, equipmentItemPrefix+id, data, 0)
		}
	}

	return item, nil
}

// Create registers a new item. Runs on the manual-retry path so the form
// can offer an explicit "try again" on failure.
func (s *EquipmentService) Create(ctx context.Context, item *domain.Equipment) (*domain.Equipment, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if item.ID == "" {
		item.ID = newID()
	}
	if item.Status == "" {
		item.Status = domain.StatusAvailable
	}

	created, err := resilience.RunManual(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
		return s.equipment.Create(ctx, item)
	}, opctx("equipment_service", "create_equipment"))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	logging.FromContext(ctx).InfoContext(ctx, "equipment created",
		slog.String("equipment_id", created.ID),
		slog.String("category", created.Category),
	)

	return created, nil
}

// Update replaces an existing item's details.
func (s *EquipmentService) Update(ctx context.Context, item *domain.Equipment) error {
	if item.ID == "" {
		return domain.NewValidationError("id", "id is required")
	}
	if err := item.Validate(); err != nil {
		return err
	}

	err := runVoidManual(ctx, s.exec, func(ctx context.Context) error {
		return s.equipment.Update(ctx, item)
	}, opctx("equipment_service", "update_equipment"))
	if err != nil {
		return err
	}

	s.invalidate(ctx)

	return nil
}

// Retire permanently removes an item from circulation. The transition is
// verified against the store before caches are touched, so a half-applied
// retire never leaves stale read models behind.
func (s *EquipmentService) Retire(ctx context.Context, id string) (*domain.Equipment, error) {
	op := Operation[string, struct{}, *domain.Equipment, *domain.Equipment]{
		Name: "retire_equipment",

		Validate: func(ctx context.Context, id string) error {
			item, openLoans, err := Parallel2(ctx,
				func(ctx context.Context) (*domain.Equipment, error) {
					return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
						return s.equipment.Get(ctx, id)
					}, opctx("equipment_service", "get_equipment"))
				},
				func(ctx context.Context) ([]domain.Loan, error) {
					return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Loan, error) {
						return s.loans.List(ctx, ports.LoanFilter{EquipmentID: id, ActiveOnly: true})
					}, opctx("equipment_service", "list_open_loans"))
				},
			)
			if err != nil {
				return err
			}

			return item.CanRetire(len(openLoans))
		},

		Perform: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, runVoid(ctx, s.exec, func(ctx context.Context) error {
				return s.equipment.SetStatus(ctx, id, domain.StatusRetired)
			}, opctx("equipment_service", "retire_equipment"))
		},

		Verify: func(ctx context.Context, id string, _ struct{}) (*domain.Equipment, error) {
			item, err := resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.Equipment, error) {
				return s.equipment.Get(ctx, id)
			}, opctx("equipment_service", "verify_retire"))
			if err != nil {
				return nil, err
			}

			if item.Status != domain.StatusRetired {
				return nil, fmt.Errorf("equipment %s still reports status %s", id, item.Status)
			}

			return item, nil
		},

		Archive: func(ctx context.Context, _ string, _ *domain.Equipment) error {
			s.invalidate(ctx)
			return nil
		},

		Respond: func(_ context.Context, _ string, item *domain.Equipment) (*domain.Equipment, error) {
			return item, nil
		},
	}

	return Execute(ctx, s.pipeline, op, id)
}

// InventoryOverview summarizes fleet state for the dashboard header.
type InventoryOverview struct {
	TotalItems int
	OnLoan     int
	Overdue    int
}

// Overview gathers dashboard counters with one concurrent fan-out.
func (s *EquipmentService) Overview(ctx context.Context) (*InventoryOverview, error) {
	total, onLoan, overdue, err := Parallel3(ctx,
		func(ctx context.Context) (*ports.EquipmentPage, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) (*ports.EquipmentPage, error) {
				return s.equipment.List(ctx, ports.EquipmentFilter{PageSize: 1})
			}, opctx("equipment_service", "count_equipment"))
		},
		func(ctx context.Context) (*ports.EquipmentPage, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) (*ports.EquipmentPage, error) {
				return s.equipment.List(ctx, ports.EquipmentFilter{Status: domain.StatusLoaned, PageSize: 1})
			}, opctx("equipment_service", "count_loaned"))
		},
		func(ctx context.Context) ([]domain.Loan, error) {
			return resilience.Run(ctx, s.exec, func(ctx context.Context) ([]domain.Loan, error) {
				return s.loans.List(ctx, ports.LoanFilter{OverdueAsOf: s.now()})
			}, opctx("equipment_service", "list_overdue"))
		},
	)
	if err != nil {
		return nil, err
	}

	return &InventoryOverview{
		TotalItems: total.TotalItems,
		OnLoan:     onLoan.TotalItems,
		Overdue:    len(overdue),
	}, nil
}

// WarmCache prefetches the given items into the cache, bounding concurrency
// so a large fleet does not stampede the document store at startup.
func (s *EquipmentService) WarmCache(ctx context.Context, ids []string) error {
	if s.cache == nil || len(ids) == 0 {
		return nil
	}

	return FanOut(ctx, cacheWarmWorkers, ids, func(ctx context.Context, id string) error {
		_, err := s.Get(ctx, id)
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	})
}

func (s *EquipmentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.DeletePrefix(ctx, equipmentCachePrefix); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "equipment cache invalidation failed",
			slog.Any("error", err))
	}
}
