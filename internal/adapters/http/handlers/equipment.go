package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/adapters/http/dto"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

// EquipmentHandler handles equipment inventory endpoints.
type EquipmentHandler struct {
	service *app.EquipmentService
}

// NewEquipmentHandler creates a new equipment handler.
func NewEquipmentHandler(service *app.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{
		service: service,
	}
}

// EquipmentResponse is the HTTP response structure for one equipment item.
type EquipmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	AcquiredAt  time.Time `json:"acquiredAt,omitzero"`
}

// EquipmentListResponse is one page of equipment results.
type EquipmentListResponse struct {
	Items      []EquipmentResponse `json:"items"`
	TotalItems int                 `json:"totalItems"`
}

// toEquipmentResponse converts a domain Equipment to an HTTP response.
func toEquipmentResponse(e *domain.Equipment) *EquipmentResponse {
	return &EquipmentResponse{
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

func toEquipmentListResponse(page *ports.EquipmentPage) *EquipmentListResponse {
	items := make([]EquipmentResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *toEquipmentResponse(&page.Items[i]))
	}

	return &EquipmentListResponse{
		Items:      items,
		TotalItems: page.TotalItems,
	}
}

// listEquipmentQuery captures the listing filter from query parameters.
type listEquipmentQuery struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Location string `form:"location"`
	Query    string `form:"q"`
	Page     int    `form:"page" validate:"omitempty,gte=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,gte=1,lte=100"`
}

// equipmentRequest is the write payload for create and update.
type equipmentRequest struct {
	Name        string    `json:"name" validate:"required,notempty"`
	Category    string    `json:"category" validate:"required,notempty"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	AcquiredAt  time.Time `json:"acquiredAt"`
}

func (r *equipmentRequest) toDomain(id string) *domain.Equipment {
	return &domain.Equipment{
		ID:          id,
		Name:        r.Name,
		Category:    r.Category,
		Location:    r.Location,
		Description: r.Description,
		Tags:        r.Tags,
		AcquiredAt:  r.AcquiredAt,
	}
}

// List handles GET /api/v1/equipment
// Returns a filtered page of the inventory.
func (h *EquipmentHandler) List(c *gin.Context) {
	var query listEquipmentQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.HandleError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), ports.EquipmentFilter{
		Category: query.Category,
		Status:   domain.EquipmentStatus(query.Status),
		Location: query.Location,
		Query:    query.Query,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEquipmentListResponse(page))
}

// Get handles GET /api/v1/equipment/:id
func (h *EquipmentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"equipment ID is required",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEquipmentResponse(item))
}

// Create handles POST /api/v1/equipment
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req equipmentRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.toDomain(""))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEquipmentResponse(created))
}

// Update handles PUT /api/v1/equipment/:id
func (h *EquipmentHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req equipmentRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	item := req.toDomain(id)
	if err := h.service.Update(c.Request.Context(), item); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEquipmentResponse(item))
}

// Retire handles POST /api/v1/equipment/:id/retire
// Retiring is refused while the item has open loans.
func (h *EquipmentHandler) Retire(c *gin.Context) {
	item, err := h.service.Retire(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEquipmentResponse(item))
}

// OverviewResponse is the dashboard counter set.
type OverviewResponse struct {
	TotalItems int `json:"totalItems"`
	OnLoan     int `json:"onLoan"`
	Overdue    int `json:"overdue"`
}

// Overview handles GET /api/v1/dashboard/overview
func (h *EquipmentHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, OverviewResponse{
		TotalItems: overview.TotalItems,
		OnLoan:     overview.OnLoan,
		Overdue:    overview.Overdue,
	})
}

// RegisterEquipmentRoutes registers equipment routes on the given router group.
// Writes require the staff role; reads are open to any authenticated caller.
func (h *EquipmentHandler) RegisterEquipmentRoutes(rg *gin.RouterGroup, staff gin.HandlerFunc) {
	equipment := rg.Group("/equipment")
	equipment.GET("", h.List)
	equipment.GET("/:id", h.Get)

	writes := equipment.Group("")
	if staff != nil {
		writes.Use(staff)
	}
	writes.POST("", h.Create)
	writes.PUT("/:id", h.Update)
	writes.POST("/:id/retire", h.Retire)

	rg.GET("/dashboard/overview", h.Overview)
}
