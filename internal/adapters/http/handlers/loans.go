package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/adapters/http/dto"
	"github.com/mkarlsen/equiploan/internal/adapters/http/middleware"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/ports"
)

// LoanHandler handles borrowing and return endpoints.
type LoanHandler struct {
	service *app.LoanService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(service *app.LoanService) *LoanHandler {
	return &LoanHandler{
		service: service,
	}
}

// LoanResponse is the HTTP response structure for a loan.
type LoanResponse struct {
	ID          string     `json:"id"`
	EquipmentID string     `json:"equipmentId"`
	BorrowerID  string     `json:"borrowerId"`
	BorrowedAt  time.Time  `json:"borrowedAt"`
	DueAt       time.Time  `json:"dueAt"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
	Overdue     bool       `json:"overdue"`
}

// toLoanResponse converts a domain Loan to an HTTP response.
func toLoanResponse(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:          l.ID,
		EquipmentID: l.EquipmentID,
		BorrowerID:  l.BorrowerID,
		BorrowedAt:  l.BorrowedAt,
		DueAt:       l.DueAt,
		ReturnedAt:  l.ReturnedAt,
		Overdue:     l.Overdue(time.Now()),
	}
}

func toLoanListResponse(loans []domain.Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		out = append(out, *toLoanResponse(&loans[i]))
	}

	return out
}

// borrowRequest is the payload for taking out a loan. The borrower is the
// authenticated caller, never part of the body.
type borrowRequest struct {
	EquipmentID string    `json:"equipmentId" validate:"required,notempty"`
	DueAt       time.Time `json:"dueAt" validate:"required"`
}

// listLoansQuery captures the loan listing filter from query parameters.
type listLoansQuery struct {
	EquipmentID string `form:"equipmentId"`
	ActiveOnly  bool   `form:"active"`
	Overdue     bool   `form:"overdue"`
}

// callerSubject resolves the authenticated caller, responding 401 when the
// gateway passed no identity.
func callerSubject(c *gin.Context) (string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.Subject == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.ErrorCodeUnauthorized,
			"authentication required",
		).WithTraceID(dto.GetTraceID(c)))

		return "", false
	}

	return claims.Subject, true
}

// Borrow handles POST /api/v1/loans
func (h *LoanHandler) Borrow(c *gin.Context) {
	borrower, ok := callerSubject(c)
	if !ok {
		return
	}

	var req borrowRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	loan, err := h.service.Borrow(c.Request.Context(), app.BorrowRequest{
		EquipmentID: req.EquipmentID,
		BorrowerID:  borrower,
		DueAt:       req.DueAt,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// Return handles POST /api/v1/loans/:id/return
func (h *LoanHandler) Return(c *gin.Context) {
	loan, err := h.service.Return(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLoanResponse(loan))
}

// List handles GET /api/v1/loans
// Results are scoped to the caller's own loans. The overdue flag switches to
// the overdue report across all borrowers, which requires the staff role.
func (h *LoanHandler) List(c *gin.Context) {
	borrower, ok := callerSubject(c)
	if !ok {
		return
	}

	var query listLoansQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.HandleError(c, err)
		return
	}

	if query.Overdue {
		claims := middleware.GetClaims(c)
		if claims == nil || !claims.HasRole("staff") {
			dto.HandleError(c, domain.NewForbiddenError("list_overdue", "staff role required"))
			return
		}

		loans, err := h.service.ListOverdue(c.Request.Context())
		if err != nil {
			dto.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, toLoanListResponse(loans))
		return
	}

	loans, err := h.service.List(c.Request.Context(), ports.LoanFilter{
		BorrowerID:  borrower,
		EquipmentID: query.EquipmentID,
		ActiveOnly:  query.ActiveOnly,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLoanListResponse(loans))
}

// Get handles GET /api/v1/loans/:id
// A loan is visible to its borrower and to staff.
func (h *LoanHandler) Get(c *gin.Context) {
	borrower, ok := callerSubject(c)
	if !ok {
		return
	}

	loan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	claims := middleware.GetClaims(c)
	if loan.BorrowerID != borrower && (claims == nil || !claims.HasRole("staff")) {
		dto.HandleError(c, domain.NewForbiddenError("get_loan", "not your loan"))
		return
	}

	c.JSON(http.StatusOK, toLoanResponse(loan))
}

// RegisterLoanRoutes registers loan routes on the given router group.
func (h *LoanHandler) RegisterLoanRoutes(rg *gin.RouterGroup) {
	loans := rg.Group("/loans")
	loans.GET("", h.List)
	loans.GET("/:id", h.Get)
	loans.POST("", h.Borrow)
	loans.POST("/:id/return", h.Return)
}
