package domain

import "strings"

// BorrowerProfile identifies who is borrowing. Borrowing is blocked until
// the profile is complete.
type BorrowerProfile struct {
	// ID is the unique identifier, shared with the auth subject.
	ID string

	// Name is the borrower's display name.
	Name string

	// Email is the borrower's contact address.
	Email string

	// Department is the institutional unit the borrower belongs to.
	Department string
}

// Complete reports whether every field required for borrowing is filled in.
func (p *BorrowerProfile) Complete() bool {
	return len(p.MissingFields()) == 0
}

// MissingFields lists the empty required fields, in display order.
func (p *BorrowerProfile) MissingFields() []string {
	var missing []string

	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(p.Department) == "" {
		missing = append(missing, "department")
	}

	return missing
}
