package domain

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationFulfilled ReservationStatus = "fulfilled"
)

// Reservation holds an equipment item for a borrower over a time window.
type Reservation struct {
	// ID is the unique identifier for this reservation.
	ID string

	// EquipmentID references the reserved item.
	EquipmentID string

	// BorrowerID references the borrower's profile.
	BorrowerID string

	// StartAt and EndAt bound the reserved window.
	StartAt time.Time
	EndAt   time.Time

	// Status is the current lifecycle state.
	Status ReservationStatus
}

// Open reports whether the reservation still holds the item.
func (r *Reservation) Open() bool {
	return r.Status == ReservationPending || r.Status == ReservationActive
}

// Overlaps reports whether the reservation window intersects [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// Validate checks the invariants every stored reservation must satisfy.
func (r *Reservation) Validate() error {
	if r.EquipmentID == "" {
		return NewValidationError("equipment_id", "equipment_id is required")
	}

	if r.BorrowerID == "" {
		return NewValidationError("borrower_id", "borrower_id is required")
	}

	if !r.EndAt.After(r.StartAt) {
		return NewValidationError("end_at", "reservation end must be after its start")
	}

	return nil
}
