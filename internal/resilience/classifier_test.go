package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		opctx         Context
		wantType      ErrorType
		wantCategory  Category
		wantSeverity  Severity
		wantRetryable bool
		wantDelay     time.Duration
		wantRetries   int
	}{
		{
			name:          "popup blocked during sign in",
			err:           Coded("auth/popup-blocked", "popup blocked by browser"),
			opctx:         Context{Operation: "sign_in"},
			wantType:      TypeAuthRequired,
			wantCategory:  CategoryAuth,
			wantSeverity:  SeverityMedium,
			wantRetryable: true,
			wantDelay:     time.Second,
			wantRetries:   2,
		},
		{
			name:          "quota exhausted on write",
			err:           Coded("resource-exhausted", "write limit reached"),
			opctx:         Context{Operation: "write_doc"},
			wantType:      TypeStoreQuotaExceeded,
			wantCategory:  CategoryStore,
			wantSeverity:  SeverityCritical,
			wantRetryable: true,
			wantDelay:     10 * time.Second,
			wantRetries:   2,
		},
		{
			name:          "offline host",
			err:           fmt.Errorf("listing equipment: %w", ErrOffline),
			opctx:         Context{Operation: "list_equipment"},
			wantType:      TypeNetworkOffline,
			wantCategory:  CategoryNetwork,
			wantSeverity:  SeverityCritical,
			wantRetryable: true,
			wantDelay:     5 * time.Second,
			wantRetries:   5,
		},
		{
			name:          "deadline exceeded is a network timeout",
			err:           context.DeadlineExceeded,
			opctx:         Context{Operation: "get_equipment"},
			wantType:      TypeNetworkTimeout,
			wantCategory:  CategoryNetwork,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     3 * time.Second,
			wantRetries:   3,
		},
		{
			name:          "generic connectivity failure",
			err:           errors.New("dial tcp: connection refused"),
			opctx:         Context{Operation: "list_equipment"},
			wantType:      TypeNetwork,
			wantCategory:  CategoryNetwork,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     2 * time.Second,
			wantRetries:   5,
		},
		{
			name:         "expired token is terminal",
			err:          Coded("auth/user-token-expired", "credential no longer valid"),
			opctx:        Context{Operation: "sign_in"},
			wantType:     TypeAuthExpired,
			wantCategory: CategoryAuth,
			wantSeverity: SeverityHigh,
		},
		{
			name:          "auth branch reclassifies network failure",
			err:           Coded("auth/network-request-failed", "request failed"),
			opctx:         Context{Operation: "sign_in"},
			wantType:      TypeNetwork,
			wantCategory:  CategoryNetwork,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     2 * time.Second,
			wantRetries:   5,
		},
		{
			name:          "explicit permission denial",
			err:           Coded("permission-denied", "access denied"),
			opctx:         Context{Operation: "update_equipment"},
			wantType:      TypePermissionDenied,
			wantCategory:  CategoryAuth,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     time.Second,
			wantRetries:   1,
		},
		{
			name:          "store unavailable",
			err:           Coded("unavailable", "backend is unreachable right now"),
			opctx:         Context{Operation: "query_docs"},
			wantType:      TypeStoreUnavailable,
			wantCategory:  CategoryStore,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     3 * time.Second,
			wantRetries:   5,
		},
		{
			name:          "rules denial",
			err:           Coded("failed-precondition", "document version changed"),
			opctx:         Context{Operation: "update_doc"},
			wantType:      TypeStoreRulesDenied,
			wantCategory:  CategoryStore,
			wantSeverity:  SeverityHigh,
			wantRetryable: true,
			wantDelay:     time.Second,
			wantRetries:   2,
		},
		{
			name:         "required field",
			err:          errors.New("name is required"),
			opctx:        Context{Operation: "validate_equipment"},
			wantType:     TypeValidationRequired,
			wantCategory: CategoryValidation,
			wantSeverity: SeverityLow,
		},
		{
			name:         "bad format",
			err:          errors.New("email has an invalid format"),
			opctx:        Context{Operation: "validate_profile"},
			wantType:     TypeValidationFormat,
			wantCategory: CategoryValidation,
			wantSeverity: SeverityLow,
		},
		{
			name:         "profile not found",
			err:          errors.New("borrower profile not found"),
			opctx:        Context{Operation: "load_profile", Component: "loan_service"},
			wantType:     TypeDomainNotFound,
			wantCategory: CategoryDomain,
			wantSeverity: SeverityMedium,
		},
		{
			name:         "profile incomplete",
			err:          errors.New("profile is incomplete"),
			opctx:        Context{Operation: "borrow_equipment"},
			wantType:     TypeDomainIncomplete,
			wantCategory: CategoryDomain,
			wantSeverity: SeverityMedium,
		},
		{
			name:         "profile duplicate",
			err:          errors.New("profile already exists"),
			opctx:        Context{Operation: "create_profile"},
			wantType:     TypeDomainDuplicate,
			wantCategory: CategoryDomain,
			wantSeverity: SeverityMedium,
		},
		{
			name:          "unrecognized error falls back to unknown",
			err:           errors.New("something odd happened"),
			opctx:         Context{Operation: "list_equipment"},
			wantType:      TypeUnknown,
			wantCategory:  CategoryGeneral,
			wantSeverity:  SeverityMedium,
			wantRetryable: true,
			wantDelay:     time.Second,
			wantRetries:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err, tt.opctx)

			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.wantCategory, c.Category)
			assert.Equal(t, tt.wantSeverity, c.Severity)
			assert.Equal(t, tt.wantRetryable, c.Retryable)
			assert.Equal(t, tt.wantDelay, c.RetryDelay)
			assert.Equal(t, tt.wantRetries, c.MaxRetries)
			assert.Equal(t, tt.err, c.Err)
			assert.Equal(t, tt.opctx, c.Context)
			assert.False(t, c.Timestamp.IsZero())
		})
	}
}

func TestClassify_IsTotal(t *testing.T) {
	c := Classify(nil, Context{})

	assert.Equal(t, TypeUnknown, c.Type)
	assert.Equal(t, CategoryGeneral, c.Category)
	assert.True(t, c.Retryable)
}

func TestClassify_Deterministic(t *testing.T) {
	err := Coded("unavailable", "backend is unreachable")
	opctx := Context{Operation: "query_docs", Component: "equipment_store"}

	first := Classify(err, opctx)
	for i := 0; i < 10; i++ {
		again := Classify(err, opctx)
		require.Equal(t, first.Type, again.Type)
		require.Equal(t, first.Category, again.Category)
		require.Equal(t, first.Severity, again.Severity)
		require.Equal(t, first.Retryable, again.Retryable)
	}
}

func TestClassify_PanicIsSystem(t *testing.T) {
	c := Classify(&PanicError{Value: "boom"}, Context{Operation: "borrow_equipment"})

	assert.Equal(t, TypeSystem, c.Type)
	assert.Equal(t, SeverityCritical, c.Severity)
	assert.False(t, c.Retryable)
}

func TestClassify_ValidationNeverRetryable(t *testing.T) {
	msgs := []string{
		"name is required",
		"due date has an invalid format",
		"serial number validation failed",
	}

	for _, msg := range msgs {
		c := Classify(errors.New(msg), Context{Operation: "validate_equipment"})
		assert.Equal(t, CategoryValidation, c.Category, msg)
		assert.False(t, c.Retryable, msg)
		assert.Equal(t, SeverityLow, c.Severity, msg)
	}
}
