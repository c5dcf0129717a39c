// Package resilience classifies failures from remote operations and drives
// retrying execution guarded by a circuit breaker. The classifier is a pure
// leaf; the executor owns all mutable state.
package resilience

import (
	"fmt"
	"time"
)

// ErrorType is the structured verdict for a failure. The taxonomy is closed:
// every member must have a display bundle in messages.go.
type ErrorType string

const (
	TypeNetwork        ErrorType = "network"
	TypeNetworkTimeout ErrorType = "network_timeout"
	TypeNetworkOffline ErrorType = "network_offline"

	TypeAuthRequired     ErrorType = "auth_required"
	TypeAuthExpired      ErrorType = "auth_expired"
	TypePermissionDenied ErrorType = "permission_denied"
	TypePermission       ErrorType = "permission"

	TypeValidation          ErrorType = "validation"
	TypeValidationRequired  ErrorType = "validation_required"
	TypeValidationFormat    ErrorType = "validation_format"
	TypeValidationDuplicate ErrorType = "validation_duplicate"

	TypeStore              ErrorType = "store"
	TypeStoreUnavailable   ErrorType = "store_unavailable"
	TypeStoreQuotaExceeded ErrorType = "store_quota_exceeded"
	TypeStoreRulesDenied   ErrorType = "store_rules_denied"

	TypeDomain           ErrorType = "domain"
	TypeDomainNotFound   ErrorType = "domain_not_found"
	TypeDomainIncomplete ErrorType = "domain_incomplete"
	TypeDomainDuplicate  ErrorType = "domain_duplicate"

	TypeCircuitOpen ErrorType = "circuit_open"
	TypeUnknown     ErrorType = "unknown"
	TypeSystem      ErrorType = "system"
)

// AllTypes returns every taxonomy member. Used by tests to enforce that the
// message table stays exhaustive.
func AllTypes() []ErrorType {
	return []ErrorType{
		TypeNetwork, TypeNetworkTimeout, TypeNetworkOffline,
		TypeAuthRequired, TypeAuthExpired, TypePermissionDenied, TypePermission,
		TypeValidation, TypeValidationRequired, TypeValidationFormat, TypeValidationDuplicate,
		TypeStore, TypeStoreUnavailable, TypeStoreQuotaExceeded, TypeStoreRulesDenied,
		TypeDomain, TypeDomainNotFound, TypeDomainIncomplete, TypeDomainDuplicate,
		TypeCircuitOpen, TypeUnknown, TypeSystem,
	}
}

// Severity is the ordered impact level of a failure.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a human-readable name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Category is the coarse grouping used for metrics and filtering.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryAuth       Category = "authentication"
	CategoryStore      Category = "store"
	CategoryValidation Category = "validation"
	CategoryDomain     Category = "domain"
	CategoryGeneral    Category = "general"
)

// Context describes the operation a failure occurred in. It is provenance
// for classification and logging, never inspected by callers for control flow.
type Context struct {
	// Operation names the logical operation, e.g. "list_equipment".
	Operation string

	// Component names the calling subsystem, e.g. "loan_service".
	Component string

	// Extra carries free-form context attributes.
	Extra map[string]string
}

// Classification is the immutable verdict for a single failure. It drives
// both retry policy and user-facing messaging.
type Classification struct {
	Type     ErrorType
	Category Category
	Severity Severity

	// Retryable records whether a retry could ever succeed. Automatic
	// retries are additionally gated by ShouldRetry, which refuses
	// critical-severity failures regardless of this flag.
	Retryable bool

	// RetryDelay is the suggested base delay before the next attempt.
	RetryDelay time.Duration

	// MaxRetries is the policy ceiling for this classification.
	MaxRetries int

	// Provenance.
	Err       error
	Context   Context
	Timestamp time.Time
}

// Coder is implemented by errors that carry a remote error code, such as
// store.RemoteError. Codes take priority over message vocabulary during
// classification.
type Coder interface {
	ErrorCode() string
}

// CodedError is a minimal coded error for callers that need to surface a
// remote code without a dedicated error type.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return e.Code
}

// ErrorCode returns the remote error code.
func (e *CodedError) ErrorCode() string {
	return e.Code
}

// Unwrap returns the wrapped cause, if any.
func (e *CodedError) Unwrap() error {
	return e.Err
}

// Coded creates a CodedError with the given code and message.
func Coded(code, message string) error {
	return &CodedError{Code: code, Message: message}
}

// PanicError wraps a panic recovered inside an executor-run operation.
// It classifies as a system failure and is never retried.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during operation: %v", e.Value)
}
