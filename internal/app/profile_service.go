package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// ProfileService manages borrower profiles. Profiles may be saved while
// still incomplete; completeness is only enforced when borrowing.
type ProfileService struct {
	profiles ports.ProfileStore
	exec     *resilience.Executor
	logger   *slog.Logger
}

// ProfileServiceConfig contains dependencies for the profile service.
type ProfileServiceConfig struct {
	Profiles ports.ProfileStore
	Exec     *resilience.Executor
	Logger   *slog.Logger
}

// NewProfileService creates a profile service with the provided dependencies.
func NewProfileService(cfg ProfileServiceConfig) *ProfileService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileService{
		profiles: cfg.Profiles,
		exec:     cfg.Exec,
		logger:   logger.With(slog.String("component", "profile_service")),
	}
}

// Get retrieves a borrower's profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.BorrowerProfile, error) {
	return resilience.Run(ctx, s.exec, func(ctx context.Context) (*domain.BorrowerProfile, error) {
		return s.profiles.Get(ctx, id)
	}, opctx("profile_service", "get_profile"))
}

// Save creates or replaces a profile.
func (s *ProfileService) Save(ctx context.Context, p *domain.BorrowerProfile) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.NewValidationError("id", "id is required")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return domain.NewValidationErrorWithValue("email", "email has an invalid format", p.Email)
	}

	err := runVoidManual(ctx, s.exec, func(ctx context.Context) error {
		return s.profiles.Put(ctx, p)
	}, opctx("profile_service", "save_profile"))
	if err != nil {
		return err
	}

	logging.FromContext(ctx).InfoContext(ctx, "profile saved",
		slog.String("profile_id", p.ID),
		slog.Bool("complete", p.Complete()),
	)

	return nil
}
