package store

import (
	"context"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

const loanCollection = "/v1/collections/loans/documents"

// LoanStore implements ports.LoanStore against the document store.
type LoanStore struct {
	client *Client
}

// NewLoanStore creates the loan store adapter.
func NewLoanStore(client *Client) *LoanStore {
	return &LoanStore{client: client}
}

// loanDoc is the store's document shape for loans.
type loanDoc struct {
	ID          string     `json:"id"`
	EquipmentID string     `json:"equipment_id"`
	BorrowerID  string     `json:"borrower_id"`
	BorrowedAt  time.Time  `json:"borrowed_at"`
	DueAt       time.Time  `json:"due_at"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}

// List implements ports.LoanStore.
func (s *LoanStore) List(ctx context.Context, filter ports.LoanFilter) ([]domain.Loan, error) {
	values := map[string]string{
		"borrower_id":  filter.BorrowerID,
		"equipment_id": filter.EquipmentID,
	}
	if filter.ActiveOnly {
		values["active"] = "true"
	}
	if !filter.OverdueAsOf.IsZero() {
		values["overdue_as_of"] = filter.OverdueAsOf.UTC().Format(time.RFC3339)
	}

	list, err := Get[documentList[loanDoc]](ctx, s.client, loanCollection+queryString(values))
	if err != nil {
		return nil, mapRemoteError(err, "loan", "")
	}

	loans := make([]domain.Loan, 0, len(list.Documents))
	for i := range list.Documents {
		loans = append(loans, *loanToDomain(&list.Documents[i]))
	}

	return loans, nil
}

// Get implements ports.LoanStore.
func (s *LoanStore) Get(ctx context.Context, id string) (*domain.Loan, error) {
	doc, err := Get[loanDoc](ctx, s.client, loanCollection+"/"+id)
	if err != nil {
		return nil, mapRemoteError(err, "loan", id)
	}

	return loanToDomain(doc), nil
}

// Create implements ports.LoanStore.
func (s *LoanStore) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	doc, err := Post[loanDoc](ctx, s.client, loanCollection, loanToDoc(l))
	if err != nil {
		return nil, mapRemoteError(err, "loan", "")
	}

	return loanToDomain(doc), nil
}

// MarkReturned implements ports.LoanStore.
func (s *LoanStore) MarkReturned(ctx context.Context, id string, returnedAt time.Time) error {
	err := s.client.Patch(ctx, loanCollection+"/"+id, map[string]string{
		"returned_at": returnedAt.UTC().Format(time.RFC3339),
	})

	return mapRemoteError(err, "loan", id)
}

func loanToDomain(doc *loanDoc) *domain.Loan {
	return &domain.Loan{
		ID:          doc.ID,
		EquipmentID: doc.EquipmentID,
		BorrowerID:  doc.BorrowerID,
		BorrowedAt:  doc.BorrowedAt,
		DueAt:       doc.DueAt,
		ReturnedAt:  doc.ReturnedAt,
	}
}

func loanToDoc(l *domain.Loan) *loanDoc {
	return &loanDoc{
		ID:          l.ID,
		EquipmentID: l.EquipmentID,
		BorrowerID:  l.BorrowerID,
		BorrowedAt:  l.BorrowedAt,
		DueAt:       l.DueAt,
		ReturnedAt:  l.ReturnedAt,
	}
}

var _ ports.LoanStore = (*LoanStore)(nil)
