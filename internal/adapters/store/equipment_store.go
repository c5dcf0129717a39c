package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

const equipmentCollection = "/v1/collections/equipment/documents"

// EquipmentStore implements ports.EquipmentStore against the document store.
type EquipmentStore struct {
	client *Client
}

// NewEquipmentStore creates the equipment store adapter.
func NewEquipmentStore(client *Client) *EquipmentStore {
	return &EquipmentStore{client: client}
}

// equipmentDoc is the store's document shape for equipment.
// This is an internal type - never exposed outside the adapter.
type equipmentDoc struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// documentList is the store's list response envelope.
type documentList[T any] struct {
	Documents []T `json:"documents"`
	Total     int `json:"total"`
}

// List implements ports.EquipmentStore.
func (s *EquipmentStore) List(ctx context.Context, filter ports.EquipmentFilter) (*ports.EquipmentPage, error) {
	query := queryString(map[string]string{
		"category":  filter.Category,
		"status":    string(filter.Status),
		"location":  filter.Location,
		"q":         filter.Query,
		"page":      positiveInt(filter.Page),
		"page_size": positiveInt(filter.PageSize),
	})

	list, err := Get[documentList[equipmentDoc]](ctx, s.client, equipmentCollection+query)
	if err != nil {
		return nil, mapRemoteError(err, "equipment", "")
	}

	items := make([]domain.Equipment, 0, len(list.Documents))
	for i := range list.Documents {
		items = append(items, *equipmentToDomain(&list.Documents[i]))
	}

	return &ports.EquipmentPage{Items: items, TotalItems: list.Total}, nil
}

// Get implements ports.EquipmentStore.
func (s *EquipmentStore) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	doc, err := Get[equipmentDoc](ctx, s.client, equipmentCollection+"/"+id)
	if err != nil {
		return nil, mapRemoteError(err, "equipment", id)
	}

	return equipmentToDomain(doc), nil
}

// Create implements ports.EquipmentStore.
func (s *EquipmentStore) Create(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	doc, err := Post[equipmentDoc](ctx, s.client, equipmentCollection, equipmentToDoc(e))
	if err != nil {
		return nil, mapRemoteError(err, "equipment", "")
	}

	return equipmentToDomain(doc), nil
}

// Update implements ports.EquipmentStore.
func (s *EquipmentStore) Update(ctx context.Context, e *domain.Equipment) error {
	err := s.client.Put(ctx, equipmentCollection+"/"+e.ID, equipmentToDoc(e))
	return mapRemoteError(err, "equipment", e.ID)
}

// SetStatus implements ports.EquipmentStore.
func (s *EquipmentStore) SetStatus(ctx context.Context, id string, status domain.EquipmentStatus) error {
	err := s.client.Patch(ctx, equipmentCollection+"/"+id, map[string]string{
		"status": string(status),
	})

	return mapRemoteError(err, "equipment", id)
}

// equipmentToDomain translates a store document to the domain entity.
func equipmentToDomain(doc *equipmentDoc) *domain.Equipment {
	return &domain.Equipment{
		ID:          doc.ID,
		Name:        doc.Name,
		Category:    doc.Category,
		Location:    doc.Location,
		Status:      domain.EquipmentStatus(doc.Status),
		Description: doc.Description,
		Tags:        doc.Tags,
		AcquiredAt:  doc.AcquiredAt,
	}
}

// equipmentToDoc translates the domain entity to a store document.
func equipmentToDoc(e *domain.Equipment) *equipmentDoc {
	return &equipmentDoc{
		ID:          e.ID,
		Name:        e.Name,
		Category:    e.Category,
		Location:    e.Location,
		Status:      string(e.Status),
		Description: e.Description,
		Tags:        e.Tags,
		AcquiredAt:  e.AcquiredAt,
	}
}

// mapRemoteError translates CRUD-shaped store failures to domain errors
// while keeping the coded RemoteError in the chain for the classifier.
func mapRemoteError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		return err
	}

	switch rerr.Code {
	case CodeNotFound:
		return fmt.Errorf("%w: %w", domain.NewNotFoundError(entity, id), err)
	case CodeConflict:
		return fmt.Errorf("%w: %w", domain.NewConflictError(entity, rerr.Message), err)
	}

	return err
}

// positiveInt renders n for a query parameter, or "" when unset.
func positiveInt(n int) string {
	if n <= 0 {
		return ""
	}

	return strconv.Itoa(n)
}

var _ ports.EquipmentStore = (*EquipmentStore)(nil)
