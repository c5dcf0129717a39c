package dto

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// GetTraceID extracts the trace ID for error responses. The context value set
// by the telemetry middleware takes precedence over the inbound request header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get("trace_id"); ok {
		s, _ := v.(string)

		return s
	}

	return c.Request.Header.Get("X-Request-ID")
}

// HandleError writes the standard error envelope for any error surfaced by a
// handler. Domain errors keep their own context in the message; failures that
// went through the resilience executor fall back to the classification's
// display bundle. Anything unrecognized becomes a 500 with a generic message.
func HandleError(c *gin.Context, err error) {
	status, resp := buildErrorResponse(err)
	c.JSON(status, resp.WithTraceID(GetTraceID(c)))
}

// AbortWithHandledError is HandleError plus aborting the handler chain, for
// use inside middleware.
func AbortWithHandledError(c *gin.Context, err error) {
	status, resp := buildErrorResponse(err)
	c.AbortWithStatusJSON(status, resp.WithTraceID(GetTraceID(c)))
}

func buildErrorResponse(err error) (int, *ErrorResponse) {
	// Request decoding failures from BindAndValidate.
	if errors.Is(err, ErrBinding) {
		return http.StatusBadRequest,
			NewErrorResponse(ErrorCodeBadRequest, "request body could not be parsed")
	}

	if errors.Is(err, ErrValidation) {
		details := ValidationErrors(err)
		if len(details) > 0 {
			return http.StatusBadRequest,
				NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", details)
		}

		return http.StatusBadRequest,
			NewErrorResponse(ErrorCodeValidation, "request validation failed")
	}

	// Domain errors carry entity and field context worth surfacing verbatim.
	// ProfileIncomplete is checked before the generic predicates because its
	// details (which fields are missing) make the response actionable.
	var incompleteErr *domain.ProfileIncompleteError
	if errors.As(err, &incompleteErr) {
		details := map[string]string{}
		for _, field := range incompleteErr.Missing {
			details[field] = "this field is required before borrowing"
		}

		return http.StatusConflict,
			NewErrorResponseWithDetails(ErrorCodeConflict, incompleteErr.Error(), details)
	}

	if domain.IsNotFound(err) {
		var notFoundErr *domain.NotFoundError
		if errors.As(err, &notFoundErr) {
			return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, notFoundErr.Error())
		}

		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, "resource not found")
	}

	if domain.IsConflict(err) {
		var conflictErr *domain.ConflictError
		if errors.As(err, &conflictErr) {
			return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, conflictErr.Error())
		}

		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, "state conflict")
	}

	if domain.IsValidation(err) {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			details := map[string]string{}
			if validationErr.Field != "" {
				details[validationErr.Field] = validationErr.Message
			}

			return http.StatusBadRequest,
				NewErrorResponseWithDetails(ErrorCodeValidation, validationErr.Error(), details)
		}

		return http.StatusBadRequest, NewErrorResponse(ErrorCodeValidation, "validation failed")
	}

	if domain.IsForbidden(err) {
		var forbiddenErr *domain.ForbiddenError
		if errors.As(err, &forbiddenErr) {
			return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, forbiddenErr.Error())
		}

		return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, "operation not permitted")
	}

	if domain.IsUnavailable(err) {
		message := "the service is temporarily unavailable"

		var unavailableErr *domain.UnavailableError
		if errors.As(err, &unavailableErr) && unavailableErr.Service != "" {
			message = "the " + unavailableErr.Service + " service is temporarily unavailable"
		}

		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout,
			NewErrorResponse(ErrorCodeTimeout, "the request timed out")
	}

	// Executor failures that did not unwrap to a domain error: respond with
	// the classification's display bundle.
	if rerr, ok := resilience.AsRetryError(err); ok {
		return retryErrorResponse(rerr)
	}

	return http.StatusInternalServerError,
		NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
}

func retryErrorResponse(rerr *resilience.RetryError) (int, *ErrorResponse) {
	code, status := classificationCode(rerr.Classification.Type)
	view := resilience.UserMessage(rerr.Classification)

	details := map[string]string{
		"suggestion": view.Suggestion,
	}
	if rerr.ManualRetryAvailable {
		details["retry"] = "manual"
	}

	message := view.Message.Message
	if view.Title != "" {
		message = view.Title + ": " + strings.TrimSuffix(view.Message.Message, ".") + "."
	}

	return status, NewErrorResponseWithDetails(code, message, details)
}

func classificationCode(t resilience.ErrorType) (string, int) {
	switch t {
	case resilience.TypeNetworkTimeout:
		return ErrorCodeTimeout, http.StatusGatewayTimeout
	case resilience.TypeNetwork, resilience.TypeNetworkOffline,
		resilience.TypeStore, resilience.TypeStoreUnavailable,
		resilience.TypeCircuitOpen:
		return ErrorCodeUnavailable, http.StatusServiceUnavailable
	case resilience.TypeStoreQuotaExceeded:
		return ErrorCodeUnavailable, http.StatusTooManyRequests
	case resilience.TypeAuthRequired, resilience.TypeAuthExpired:
		return ErrorCodeUnauthorized, http.StatusUnauthorized
	case resilience.TypePermissionDenied, resilience.TypePermission,
		resilience.TypeStoreRulesDenied:
		return ErrorCodeForbidden, http.StatusForbidden
	case resilience.TypeValidation, resilience.TypeValidationRequired,
		resilience.TypeValidationFormat:
		return ErrorCodeValidation, http.StatusBadRequest
	case resilience.TypeValidationDuplicate, resilience.TypeDomainDuplicate,
		resilience.TypeDomainIncomplete:
		return ErrorCodeConflict, http.StatusConflict
	case resilience.TypeDomainNotFound:
		return ErrorCodeNotFound, http.StatusNotFound
	default:
		return ErrorCodeInternal, http.StatusInternalServerError
	}
}
