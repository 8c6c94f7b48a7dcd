package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "catalog").Logger()}
}

func (s *Service) CreateTestType(ctx context.Context, t *TestType) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if t.Code == "" {
		return apperr.Validation("code is required")
	}
	if t.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) GetTestType(ctx context.Context, id uuid.UUID) (*TestType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListTestTypes(ctx context.Context) ([]*TestType, error) {
	return s.repo.List(ctx)
}

// SeedDefaults inserts the default catalog, skipping codes that already exist,
// and returns how many tests were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, t := range Defaults() {
		t := t
		ok, err := s.repo.CreateIfAbsent(ctx, &t)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	s.logger.Info().Int("added", added).Msg("catalog seeded")
	return added, nil
}
