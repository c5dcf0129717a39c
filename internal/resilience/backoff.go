package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	// defaultMultiplier is the exponential backoff multiplier.
	defaultMultiplier = 2.0

	// jitterRange is the span of the additive jitter, [0, jitterRange).
	// Jitter is added rather than multiplied so concurrent callers with the
	// same base delay still spread out.
	jitterRange = time.Second
)

// RetryDelay computes the backoff before attempt+1 using exponential growth
// with additive jitter: min(base * 2^(attempt-1) + jitter, max). The result
// never exceeds max.
func RetryDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	return retryDelay(base, attempt, defaultMultiplier, max, true)
}

func retryDelay(base time.Duration, attempt int, multiplier float64, max time.Duration, jitter bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(base) * math.Pow(multiplier, float64(attempt-1))

	if jitter {
		delay += rand.Float64() * float64(jitterRange) //nolint:gosec // No need for crypto-grade randomness
	}

	if delay > float64(max) {
		delay = float64(max)
	}

	return time.Duration(delay)
}

// ShouldRetry reports whether the executor may automatically retry after a
// failure with this classification. Critical-severity failures are never
// retried automatically, even when the classification is marked retryable.
func ShouldRetry(c Classification, attempt int) bool {
	return c.Retryable && attempt < c.MaxRetries && c.Severity != SeverityCritical
}
