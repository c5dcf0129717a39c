package domain

import "time"

// Loan records one borrowing of one equipment item.
type Loan struct {
	// ID is the unique identifier for this loan.
	ID string

	// EquipmentID references the borrowed item.
	EquipmentID string

	// BorrowerID references the borrower's profile.
	BorrowerID string

	// BorrowedAt is when the item was handed out.
	BorrowedAt time.Time

	// DueAt is when the item must be returned.
	DueAt time.Time

	// ReturnedAt is set once the item comes back. Nil while the loan is open.
	ReturnedAt *time.Time
}

// Active reports whether the loan is still open.
func (l *Loan) Active() bool {
	return l.ReturnedAt == nil
}

// Overdue reports whether the loan is open past its due date.
func (l *Loan) Overdue(now time.Time) bool {
	return l.Active() && now.After(l.DueAt)
}

// Validate checks the invariants every stored loan must satisfy.
func (l *Loan) Validate() error {
	if l.EquipmentID == "" {
		return NewValidationError("equipment_id", "equipment_id is required")
	}

	if l.BorrowerID == "" {
		return NewValidationError("borrower_id", "borrower_id is required")
	}

	if !l.DueAt.After(l.BorrowedAt) {
		return NewValidationError("due_at", "due date must be after the borrow date")
	}

	return nil
}
