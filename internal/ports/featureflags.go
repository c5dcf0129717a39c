package ports

import (
	"context"
)

// FeatureFlags evaluates runtime settings flags. The production
// implementation reads the settings document through the settings cache, so
// operators can toggle behavior (e.g. reservations, self-service borrowing)
// without a redeploy.
//
// Design principles:
//   - Always provide default values for graceful degradation
//   - Evaluation failures fall back to the default, never error out
type FeatureFlags interface {
	// IsEnabled checks if a boolean settings flag is enabled.
	// Returns defaultValue if the flag doesn't exist or evaluation fails.
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool

	// GetString retrieves a string settings value.
	// Returns defaultValue if the flag doesn't exist or evaluation fails.
	GetString(ctx context.Context, flag string, defaultValue string) string

	// GetInt retrieves an integer settings value.
	// Returns defaultValue if the flag doesn't exist or evaluation fails.
	// Useful for operational limits such as max concurrent loans.
	GetInt(ctx context.Context, flag string, defaultValue int) int
}
