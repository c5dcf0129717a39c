package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"
)

// ErrOffline marks a failure observed while the host has no connectivity.
// Adapters wrap transport errors with it when they detect the condition.
var ErrOffline = errors.New("host is offline")

// Classify inspects an arbitrary failure and returns its Classification.
// It is total: it never panics and never returns a zero verdict. The verdict
// is a pure function of the error signature and the operation context; only
// the timestamp varies between calls.
func Classify(err error, opctx Context) Classification {
	c := classifySignature(err, opctx)
	c.Err = err
	c.Context = opctx
	c.Timestamp = time.Now()

	return c
}

// classifySignature applies the ordered rule list. Order matters: the
// signals overlap, and first match wins.
func classifySignature(err error, opctx Context) Classification {
	if err == nil {
		return fallbackClassification()
	}

	code := errorCode(err)
	msg := strings.ToLower(err.Error())

	// Panics surfaced by the executor are systemic, never retried.
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return Classification{
			Type:     TypeSystem,
			Category: CategoryGeneral,
			Severity: SeverityCritical,
		}
	}

	if c, ok := classifyNetwork(err, code, msg); ok {
		return c
	}

	if c, ok := classifyAuth(code, msg); ok {
		return c
	}

	if c, ok := classifyStore(code, msg); ok {
		return c
	}

	if c, ok := classifyValidation(opctx, msg); ok {
		return c
	}

	if c, ok := classifyDomain(opctx, msg); ok {
		return c
	}

	return fallbackClassification()
}

func fallbackClassification() Classification {
	return Classification{
		Type:       TypeUnknown,
		Category:   CategoryGeneral,
		Severity:   SeverityMedium,
		Retryable:  true,
		RetryDelay: time.Second,
		MaxRetries: 3,
	}
}

// errorCode extracts a remote error code from the chain, or "".
func errorCode(err error) string {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}

	return ""
}

func classifyNetwork(err error, code, msg string) (Classification, bool) {
	if isOffline(err, code, msg) {
		return Classification{
			Type:       TypeNetworkOffline,
			Category:   CategoryNetwork,
			Severity:   SeverityCritical,
			Retryable:  true,
			RetryDelay: 5 * time.Second,
			MaxRetries: 5,
		}, true
	}

	if isTimeout(err, msg) {
		return Classification{
			Type:       TypeNetworkTimeout,
			Category:   CategoryNetwork,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: 3 * time.Second,
			MaxRetries: 3,
		}, true
	}

	if isConnectivity(err, msg) {
		return Classification{
			Type:       TypeNetwork,
			Category:   CategoryNetwork,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: 2 * time.Second,
			MaxRetries: 5,
		}, true
	}

	return Classification{}, false
}

func isOffline(err error, code, msg string) bool {
	if errors.Is(err, ErrOffline) || code == "network/offline" {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var errno syscall.Errno
		if errors.As(opErr.Err, &errno) {
			switch errno {
			case syscall.ENETDOWN, syscall.ENETUNREACH:
				return true
			}
		}
	}

	return strings.Contains(msg, "offline") || strings.Contains(msg, "network is unreachable")
}

func isTimeout(err error, msg string) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded")
}

func isConnectivity(err error, msg string) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"dns",
		"fetch failed",
		"network error",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}

	return false
}

// classifyAuth handles auth-domain codes and unauthorized/denied vocabulary.
// An auth failure that is really a network failure is reclassified back to
// network inside this branch; downstream retry-delay expectations depend on
// that, so the ordering is deliberate.
func classifyAuth(code, msg string) (Classification, bool) {
	inBranch := strings.HasPrefix(code, "auth/") ||
		code == "permission-denied" ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "authentication")
	if !inBranch {
		return Classification{}, false
	}

	switch code {
	case "auth/popup-blocked", "auth/popup-closed-by-user", "auth/cancelled-popup-request":
		return Classification{
			Type:       TypeAuthRequired,
			Category:   CategoryAuth,
			Severity:   SeverityMedium,
			Retryable:  true,
			RetryDelay: time.Second,
			MaxRetries: 2,
		}, true

	case "auth/network-request-failed":
		return Classification{
			Type:       TypeNetwork,
			Category:   CategoryNetwork,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: 2 * time.Second,
			MaxRetries: 5,
		}, true
	}

	if code == "auth/user-token-expired" || code == "auth/id-token-expired" ||
		strings.Contains(msg, "token expired") || strings.Contains(msg, "session expired") {
		return Classification{
			Type:     TypeAuthExpired,
			Category: CategoryAuth,
			Severity: SeverityHigh,
		}, true
	}

	if code == "permission-denied" || code == "auth/unauthorized" ||
		strings.Contains(msg, "permission denied") || strings.Contains(msg, "access denied") {
		return Classification{
			Type:       TypePermissionDenied,
			Category:   CategoryAuth,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: time.Second,
			MaxRetries: 1,
		}, true
	}

	return Classification{
		Type:       TypePermission,
		Category:   CategoryAuth,
		Severity:   SeverityMedium,
		Retryable:  true,
		RetryDelay: time.Second,
		MaxRetries: 2,
	}, true
}

func classifyStore(code, msg string) (Classification, bool) {
	inBranch := false
	switch code {
	case "unavailable", "resource-exhausted", "failed-precondition", "aborted", "data-loss":
		inBranch = true
	}

	if !inBranch {
		for _, phrase := range []string{"document store", "quota", "service unavailable", "storage"} {
			if strings.Contains(msg, phrase) {
				inBranch = true
				break
			}
		}
	}

	if !inBranch {
		return Classification{}, false
	}

	switch {
	case code == "unavailable" || strings.Contains(msg, "service unavailable"):
		return Classification{
			Type:       TypeStoreUnavailable,
			Category:   CategoryStore,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: 3 * time.Second,
			MaxRetries: 5,
		}, true

	case code == "resource-exhausted" || strings.Contains(msg, "quota"):
		// Retryable records that a later manual retry may succeed;
		// critical severity blocks any automatic retry via ShouldRetry.
		return Classification{
			Type:       TypeStoreQuotaExceeded,
			Category:   CategoryStore,
			Severity:   SeverityCritical,
			Retryable:  true,
			RetryDelay: 10 * time.Second,
			MaxRetries: 2,
		}, true

	case code == "failed-precondition" || strings.Contains(msg, "insufficient permissions"):
		return Classification{
			Type:       TypeStoreRulesDenied,
			Category:   CategoryStore,
			Severity:   SeverityHigh,
			Retryable:  true,
			RetryDelay: time.Second,
			MaxRetries: 2,
		}, true
	}

	return Classification{
		Type:       TypeStore,
		Category:   CategoryStore,
		Severity:   SeverityMedium,
		Retryable:  true,
		RetryDelay: 2 * time.Second,
		MaxRetries: 3,
	}, true
}

// classifyValidation triggers when the context marks a validation step or
// the vocabulary indicates required/invalid/format problems. Validation
// failures are never retried.
func classifyValidation(opctx Context, msg string) (Classification, bool) {
	inBranch := strings.HasPrefix(opctx.Operation, "validate") ||
		opctx.Extra["stage"] == "validation" ||
		strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "format") ||
		strings.Contains(msg, "validation")
	if !inBranch {
		return Classification{}, false
	}

	t := TypeValidation
	switch {
	case strings.Contains(msg, "required") || strings.Contains(msg, "missing"):
		t = TypeValidationRequired
	case strings.Contains(msg, "format") || strings.Contains(msg, "invalid") || strings.Contains(msg, "malformed"):
		t = TypeValidationFormat
	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists"):
		t = TypeValidationDuplicate
	}

	return Classification{
		Type:     t,
		Category: CategoryValidation,
		Severity: SeverityLow,
	}, true
}

// classifyDomain triggers when the context names a borrower-profile style
// domain operation or the vocabulary matches one of its failure modes.
func classifyDomain(opctx Context, msg string) (Classification, bool) {
	scope := strings.ToLower(opctx.Operation + " " + opctx.Component)
	inBranch := strings.Contains(scope, "profile") ||
		strings.Contains(scope, "borrower") ||
		strings.Contains(msg, "profile")
	if !inBranch {
		return Classification{}, false
	}

	switch {
	case strings.Contains(msg, "not found"):
		return Classification{
			Type:     TypeDomainNotFound,
			Category: CategoryDomain,
			Severity: SeverityMedium,
		}, true

	case strings.Contains(msg, "incomplete"):
		return Classification{
			Type:     TypeDomainIncomplete,
			Category: CategoryDomain,
			Severity: SeverityMedium,
		}, true

	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists"):
		return Classification{
			Type:     TypeDomainDuplicate,
			Category: CategoryDomain,
			Severity: SeverityMedium,
		}, true
	}

	return Classification{
		Type:       TypeDomain,
		Category:   CategoryDomain,
		Severity:   SeverityMedium,
		Retryable:  true,
		RetryDelay: time.Second,
		MaxRetries: 2,
	}, true
}
