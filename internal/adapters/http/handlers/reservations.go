package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/adapters/http/dto"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/domain"
)

// ReservationHandler handles reservation endpoints.
type ReservationHandler struct {
	service *app.ReservationService
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(service *app.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		service: service,
	}
}

// ReservationResponse is the HTTP response structure for a reservation.
type ReservationResponse struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipmentId"`
	BorrowerID  string    `json:"borrowerId"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	Status      string    `json:"status"`
}

// toReservationResponse converts a domain Reservation to an HTTP response.
func toReservationResponse(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:          r.ID,
		EquipmentID: r.EquipmentID,
		BorrowerID:  r.BorrowerID,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
		Status:      string(r.Status),
	}
}

// reserveRequest is the payload for placing a hold. The borrower is the
// authenticated caller.
type reserveRequest struct {
	EquipmentID string    `json:"equipmentId" validate:"required,notempty"`
	StartAt     time.Time `json:"startAt" validate:"required"`
	EndAt       time.Time `json:"endAt" validate:"required"`
}

// Reserve handles POST /api/v1/reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	borrower, ok := callerSubject(c)
	if !ok {
		return
	}

	var req reserveRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	created, err := h.service.Reserve(c.Request.Context(), app.ReserveRequest{
		EquipmentID: req.EquipmentID,
		BorrowerID:  borrower,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toReservationResponse(created))
}

// Cancel handles DELETE /api/v1/reservations/:id
// Only the reservation's owner may cancel it.
func (h *ReservationHandler) Cancel(c *gin.Context) {
	borrower, ok := callerSubject(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), borrower); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListForEquipment handles GET /api/v1/equipment/:id/reservations
func (h *ReservationHandler) ListForEquipment(c *gin.Context) {
	reservations, err := h.service.ListForEquipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	out := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, *toReservationResponse(&reservations[i]))
	}

	c.JSON(http.StatusOK, out)
}

// RegisterReservationRoutes registers reservation routes on the given router group.
func (h *ReservationHandler) RegisterReservationRoutes(rg *gin.RouterGroup) {
	reservations := rg.Group("/reservations")
	reservations.POST("", h.Reserve)
	reservations.DELETE("/:id", h.Cancel)

	rg.GET("/equipment/:id/reservations", h.ListForEquipment)
}
