// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrConflict, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
)

// EquipmentFilter narrows equipment listings. Zero fields are ignored.
type EquipmentFilter struct {
	Category string
	Status   domain.EquipmentStatus
	Location string

	// Query is a free-text search over name, description, and tags.
	Query string

	Page     int
	PageSize int
}

// EquipmentPage is one page of equipment results.
type EquipmentPage struct {
	Items      []domain.Equipment
	TotalItems int
}

// EquipmentStore persists equipment items in the remote document store.
type EquipmentStore interface {
	// List returns a filtered page of equipment.
	List(ctx context.Context, filter EquipmentFilter) (*EquipmentPage, error)

	// Get retrieves one item by ID.
	// Returns domain.ErrNotFound if the item does not exist.
	Get(ctx context.Context, id string) (*domain.Equipment, error)

	// Create persists a new item and returns it with its assigned ID.
	Create(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error)

	// Update replaces an existing item.
	// Returns domain.ErrNotFound if the item does not exist and
	// domain.ErrConflict on a concurrent modification.
	Update(ctx context.Context, e *domain.Equipment) error

	// SetStatus transitions the item's lifecycle state.
	SetStatus(ctx context.Context, id string, status domain.EquipmentStatus) error
}

// LoanFilter narrows loan listings. Zero fields are ignored.
type LoanFilter struct {
	BorrowerID  string
	EquipmentID string

	// ActiveOnly restricts results to loans that have not been returned.
	ActiveOnly bool

	// OverdueAsOf, when non-zero, restricts results to open loans past due.
	OverdueAsOf time.Time
}

// LoanStore persists loan records.
type LoanStore interface {
	// List returns loans matching the filter.
	List(ctx context.Context, filter LoanFilter) ([]domain.Loan, error)

	// Get retrieves one loan by ID.
	// Returns domain.ErrNotFound if the loan does not exist.
	Get(ctx context.Context, id string) (*domain.Loan, error)

	// Create persists a new loan and returns it with its assigned ID.
	Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error)

	// MarkReturned closes the loan at the given time.
	// Returns domain.ErrConflict if the loan is already closed.
	MarkReturned(ctx context.Context, id string, returnedAt time.Time) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	// ListForEquipment returns reservations for one item, newest first.
	ListForEquipment(ctx context.Context, equipmentID string) ([]domain.Reservation, error)

	// Get retrieves one reservation by ID.
	// Returns domain.ErrNotFound if the reservation does not exist.
	Get(ctx context.Context, id string) (*domain.Reservation, error)

	// Create persists a new reservation and returns it with its assigned ID.
	Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)

	// SetStatus transitions the reservation's lifecycle state.
	SetStatus(ctx context.Context, id string, status domain.ReservationStatus) error
}

// ProfileStore persists borrower profiles.
type ProfileStore interface {
	// Get retrieves a profile by borrower ID.
	// Returns domain.ErrNotFound if no profile exists.
	Get(ctx context.Context, id string) (*domain.BorrowerProfile, error)

	// Put creates or replaces a profile.
	Put(ctx context.Context, p *domain.BorrowerProfile) error
}

// Cache defines the contract for caching operations.
// Implementations may use Redis, Memcached, or in-memory caches.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with optional TTL.
	// A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	// Delete removes a value from the cache.
	// Does not return an error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key under the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
