package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/adapters/http/dto"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/domain"
)

// ProfileHandler handles borrower profile endpoints. Profiles are
// self-service: every route operates on the authenticated caller's own
// profile.
type ProfileHandler struct {
	service *app.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(service *app.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// ProfileResponse is the HTTP response structure for a borrower profile.
// MissingFields tells the forms frontend which inputs still block borrowing.
type ProfileResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	Department    string   `json:"department,omitempty"`
	Complete      bool     `json:"complete"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// toProfileResponse converts a domain BorrowerProfile to an HTTP response.
func toProfileResponse(p *domain.BorrowerProfile) *ProfileResponse {
	return &ProfileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Department:    p.Department,
		Complete:      p.Complete(),
		MissingFields: p.MissingFields(),
	}
}

// profileRequest is the payload for saving the caller's profile. Partial
// profiles are accepted; borrowing stays blocked until all fields are filled.
type profileRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department"`
}

// Get handles GET /api/v1/profiles/me
// A missing profile is reported as an empty, incomplete one so the frontend
// can render the form without special-casing 404.
func (h *ProfileHandler) Get(c *gin.Context) {
	subject, ok := callerSubject(c)
	if !ok {
		return
	}

	profile, err := h.service.Get(c.Request.Context(), subject)
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusOK, toProfileResponse(&domain.BorrowerProfile{ID: subject}))
			return
		}

		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Save handles PUT /api/v1/profiles/me
func (h *ProfileHandler) Save(c *gin.Context) {
	subject, ok := callerSubject(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	profile := &domain.BorrowerProfile{
		ID:         subject,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	}

	if err := h.service.Save(c.Request.Context(), profile); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// RegisterProfileRoutes registers profile routes on the given router group.
func (h *ProfileHandler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	profiles := rg.Group("/profiles")
	profiles.GET("/me", h.Get)
	profiles.PUT("/me", h.Save)
}
