// Package domain contains core business entities and rules.
package domain

import (
	"strings"
	"time"
)

// EquipmentStatus is the lifecycle state of an equipment item.
type EquipmentStatus string

const (
	StatusAvailable   EquipmentStatus = "available"
	StatusLoaned      EquipmentStatus = "loaned"
	StatusReserved    EquipmentStatus = "reserved"
	StatusMaintenance EquipmentStatus = "maintenance"
	StatusRetired     EquipmentStatus = "retired"
)

// Valid reports whether the status is a known lifecycle state.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusLoaned, StatusReserved, StatusMaintenance, StatusRetired:
		return true
	}

	return false
}

// Equipment is a loanable inventory item.
// This is a domain entity - it has no knowledge of external systems.
type Equipment struct {
	// ID is the unique identifier for this item.
	ID string

	// Name is the human-readable item name, e.g. "Canon EOS R6".
	Name string

	// Category groups items for browsing, e.g. "camera", "laptop".
	Category string

	// Location is where the item is kept when not on loan.
	Location string

	// Status is the current lifecycle state.
	Status EquipmentStatus

	// Description is free-form detail shown on the item page.
	Description string

	// Tags are searchable keywords associated with the item.
	Tags []string

	// AcquiredAt is when the institution acquired the item.
	AcquiredAt time.Time
}

// Validate checks the invariants every stored item must satisfy.
func (e *Equipment) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("name", "name is required")
	}

	if strings.TrimSpace(e.Category) == "" {
		return NewValidationError("category", "category is required")
	}

	if e.Status != "" && !e.Status.Valid() {
		return NewValidationErrorWithValue("status", "unknown status", string(e.Status))
	}

	return nil
}

// CanBorrow reports whether the item may be borrowed by the given borrower.
// Borrowing is allowed from available, or from reserved when the active
// reservation belongs to that borrower.
func (e *Equipment) CanBorrow(borrowerID string, active *Reservation) error {
	switch e.Status {
	case StatusAvailable:
		return nil

	case StatusReserved:
		if active != nil && active.BorrowerID == borrowerID {
			return nil
		}
		return NewConflictError("equipment", "reserved for another borrower")

	case StatusLoaned:
		return NewConflictError("equipment", "already on loan")

	case StatusMaintenance:
		return NewConflictError("equipment", "under maintenance")

	case StatusRetired:
		return NewForbiddenError("borrow", "equipment is retired")
	}

	return NewConflictError("equipment", "not borrowable in its current state")
}

// CanRetire reports whether the item may be retired. Retiring with an open
// loan would strand the borrower's record.
func (e *Equipment) CanRetire(openLoans int) error {
	if e.Status == StatusRetired {
		return NewConflictError("equipment", "already retired")
	}

	if openLoans > 0 {
		return NewConflictError("equipment", "open loans exist")
	}

	return nil
}
