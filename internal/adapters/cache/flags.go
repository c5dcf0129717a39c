package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mkarlsen/equiploan/internal/ports"
)

// settingsKey is where the operator-managed settings document lives.
const settingsKey = "settings/flags"

// Flags implements ports.FeatureFlags on top of the settings cache.
// The settings document is a flat JSON object written by operators
// (for example {"reservations_enabled": true, "max_active_loans": 5}).
// Any read failure falls back to the caller's default.
type Flags struct {
	cache  ports.Cache
	logger *slog.Logger
}

// NewFlags creates a settings-backed flag evaluator.
func NewFlags(cache ports.Cache, logger *slog.Logger) *Flags {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flags{cache: cache, logger: logger.With("component", "flags")}
}

func (f *Flags) lookup(ctx context.Context, flag string) (any, bool) {
	data, err := f.cache.Get(ctx, settingsKey)
	if err != nil {
		return nil, false
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		f.logger.Warn("settings document is malformed", "error", err)
		return nil, false
	}

	value, ok := settings[flag]
	return value, ok
}

// IsEnabled implements ports.FeatureFlags.
func (f *Flags) IsEnabled(ctx context.Context, flag string, defaultValue bool) bool {
	value, ok := f.lookup(ctx, flag)
	if !ok {
		return defaultValue
	}
	b, ok := value.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetString implements ports.FeatureFlags.
func (f *Flags) GetString(ctx context.Context, flag string, defaultValue string) string {
	value, ok := f.lookup(ctx, flag)
	if !ok {
		return defaultValue
	}
	s, ok := value.(string)
	if !ok {
		return defaultValue
	}
	return s
}

// GetInt implements ports.FeatureFlags.
func (f *Flags) GetInt(ctx context.Context, flag string, defaultValue int) int {
	value, ok := f.lookup(ctx, flag)
	if !ok {
		return defaultValue
	}
	// JSON numbers decode as float64.
	n, ok := value.(float64)
	if !ok {
		return defaultValue
	}
	return int(n)
}

var _ ports.FeatureFlags = (*Flags)(nil)
