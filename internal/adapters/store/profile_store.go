package store

import (
	"context"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

const profileCollection = "/v1/collections/profiles/documents"

// ProfileStore implements ports.ProfileStore against the document store.
type ProfileStore struct {
	client *Client
}

// NewProfileStore creates the profile store adapter.
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// profileDoc is the store's document shape for borrower profiles.
type profileDoc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// Get implements ports.ProfileStore.
func (s *ProfileStore) Get(ctx context.Context, id string) (*domain.BorrowerProfile, error) {
	doc, err := Get[profileDoc](ctx, s.client, profileCollection+"/"+id)
	if err != nil {
		return nil, mapRemoteError(err, "profile", id)
	}

	return &domain.BorrowerProfile{
		ID:         doc.ID,
		Name:       doc.Name,
		Email:      doc.Email,
		Department: doc.Department,
	}, nil
}

// Put implements ports.ProfileStore.
func (s *ProfileStore) Put(ctx context.Context, p *domain.BorrowerProfile) error {
	err := s.client.Put(ctx, profileCollection+"/"+p.ID, &profileDoc{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Department: p.Department,
	})

	return mapRemoteError(err, "profile", p.ID)
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
