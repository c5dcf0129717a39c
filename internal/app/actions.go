package app

import (
	"context"
	"fmt"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// Staged write actions committed through appcontext.RequestContext. Each
// action goes through the resilience executor and knows how to undo itself
// so a failed commit leaves the inventory consistent.

// setEquipmentStatusAction transitions an item's lifecycle state.
type setEquipmentStatusAction struct {
	store    ports.EquipmentStore
	exec     *resilience.Executor
	id       string
	to       domain.EquipmentStatus
	previous domain.EquipmentStatus
}

func (a *setEquipmentStatusAction) Execute(ctx context.Context) error {
	return runVoid(ctx, a.exec, func(ctx context.Context) error {
		return a.store.SetStatus(ctx, a.id, a.to)
	}, opctx("loan_service", "set_equipment_status"))
}

func (a *setEquipmentStatusAction) Rollback(ctx context.Context) error {
	return runVoid(ctx, a.exec, func(ctx context.Context) error {
		return a.store.SetStatus(ctx, a.id, a.previous)
	}, opctx("loan_service", "rollback_equipment_status"))
}

func (a *setEquipmentStatusAction) Description() string {
	return fmt.Sprintf("set equipment %s status to %s", a.id, a.to)
}

// setReservationStatusAction transitions a reservation's lifecycle state.
type setReservationStatusAction struct {
	store    ports.ReservationStore
	exec     *resilience.Executor
	id       string
	to       domain.ReservationStatus
	previous domain.ReservationStatus
}

func (a *setReservationStatusAction) Execute(ctx context.Context) error {
	return runVoid(ctx, a.exec, func(ctx context.Context) error {
		return a.store.SetStatus(ctx, a.id, a.to)
	}, opctx("loan_service", "set_reservation_status"))
}

func (a *setReservationStatusAction) Rollback(ctx context.Context) error {
	return runVoid(ctx, a.exec, func(ctx context.Context) error {
		return a.store.SetStatus(ctx, a.id, a.previous)
	}, opctx("loan_service", "rollback_reservation_status"))
}

func (a *setReservationStatusAction) Description() string {
	return fmt.Sprintf("set reservation %s status to %s", a.id, a.to)
}

// invalidateCacheAction drops cached read models under a key prefix.
// Invalidation is idempotent, so rollback is a no-op.
type invalidateCacheAction struct {
	cache  ports.Cache
	prefix string
}

func (a *invalidateCacheAction) Execute(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.DeletePrefix(ctx, a.prefix)
}

func (a *invalidateCacheAction) Rollback(context.Context) error {
	return nil
}

func (a *invalidateCacheAction) Description() string {
	return fmt.Sprintf("invalidate cache prefix %q", a.prefix)
}
