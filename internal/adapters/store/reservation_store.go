package store

import (
	"context"
	"time"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

const reservationCollection = "/v1/collections/reservations/documents"

// ReservationStore implements ports.ReservationStore against the document store.
type ReservationStore struct {
	client *Client
}

// NewReservationStore creates the reservation store adapter.
func NewReservationStore(client *Client) *ReservationStore {
	return &ReservationStore{client: client}
}

// reservationDoc is the store's document shape for reservations.
type reservationDoc struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipment_id"`
	BorrowerID  string    `json:"borrower_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
}

// ListForEquipment implements ports.ReservationStore.
func (s *ReservationStore) ListForEquipment(ctx context.Context, equipmentID string) ([]domain.Reservation, error) {
	query := queryString(map[string]string{"equipment_id": equipmentID})

	list, err := Get[documentList[reservationDoc]](ctx, s.client, reservationCollection+query)
	if err != nil {
		return nil, mapRemoteError(err, "reservation", "")
	}

	reservations := make([]domain.Reservation, 0, len(list.Documents))
	for i := range list.Documents {
		reservations = append(reservations, *reservationToDomain(&list.Documents[i]))
	}

	return reservations, nil
}

// Get implements ports.ReservationStore.
func (s *ReservationStore) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	doc, err := Get[reservationDoc](ctx, s.client, reservationCollection+"/"+id)
	if err != nil {
		return nil, mapRemoteError(err, "reservation", id)
	}

	return reservationToDomain(doc), nil
}

// Create implements ports.ReservationStore.
func (s *ReservationStore) Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	doc, err := Post[reservationDoc](ctx, s.client, reservationCollection, reservationToDoc(r))
	if err != nil {
		return nil, mapRemoteError(err, "reservation", "")
	}

	return reservationToDomain(doc), nil
}

// SetStatus implements ports.ReservationStore.
func (s *ReservationStore) SetStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	err := s.client.Patch(ctx, reservationCollection+"/"+id, map[string]string{
		"status": string(status),
	})

	return mapRemoteError(err, "reservation", id)
}

func reservationToDomain(doc *reservationDoc) *domain.Reservation {
	return &domain.Reservation{
		ID:          doc.ID,
		EquipmentID: doc.EquipmentID,
		BorrowerID:  doc.BorrowerID,
		StartAt:     doc.StartAt,
		EndAt:       doc.EndAt,
		Status:      domain.ReservationStatus(doc.Status),
	}
}

func reservationToDoc(r *domain.Reservation) *reservationDoc {
	return &reservationDoc{
		ID:          r.ID,
		EquipmentID: r.EquipmentID,
		BorrowerID:  r.BorrowerID,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		Status:      string(r.Status),
	}
}

var _ ports.ReservationStore = (*ReservationStore)(nil)
