// Package context provides request-scoped context management for orchestration
// services using a Two-Phase Request Context Pattern.
//
// # Phase 1: Lazy Memoization
//
// Use GetOrFetch to cache expensive lookups within a request:
//
//	rc := context.FromContext(ctx)
//	item, err := rc.GetOrFetch("equipment:eq-1", func(ctx context.Context) (any, error) {
//	    return equipmentStore.Get(ctx, "eq-1")
//	})
//
// Subsequent calls with the same key return the cached value without
// re-fetching, so every pipeline step observes the same snapshot.
//
// # Phase 2: Staged Writes
//
// Collect write operations and execute them atomically:
//
//	rc.AddAction(&setEquipmentStatusAction{ID: "eq-1", To: domain.StatusLoaned})
//	rc.AddAction(&setReservationStatusAction{ID: "res-1", To: domain.ReservationFulfilled})
//
//	if err := rc.Commit(ctx); err != nil {
//	    // Executed actions are rolled back in reverse order
//	}
//
// # Usage in Application Services
//
//	func (s *LoanService) Borrow(ctx context.Context, req BorrowRequest) (*domain.Loan, error) {
//	    rc := context.New(ctx)
//	    ctx = context.WithContext(ctx, rc)
//
//	    // Phase 1: Fetch data (memoized)
//	    item, _ := rc.GetOrFetch("equipment:"+req.EquipmentID, fetchItem)
//
//	    // Phase 2: Stage writes
//	    rc.AddAction(&setEquipmentStatusAction{...})
//	    rc.AddAction(&invalidateCacheAction{...})
//
//	    return loan, rc.Commit(ctx)
//	}
package context
