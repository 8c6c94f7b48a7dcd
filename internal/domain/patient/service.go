package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "patient").Logger(),
		now:    time.Now,
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) Register(ctx context.Context, p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	p.Email = trimOptional(p.Email)
	p.Gender = trimOptional(p.Gender)
	p.Address = trimOptional(p.Address)
	p.EmergencyContact = trimOptional(p.EmergencyContact)
	p.EmergencyPhone = trimOptional(p.EmergencyPhone)

	if p.FirstName == "" || p.LastName == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	if p.PhoneNumber == "" {
		return apperr.Validation("phone_number is required")
	}
	if p.Gender != nil && !labmodels.ValidGender(*p.Gender) {
		return apperr.Validation("gender must be Male, Female or Other")
	}
	if p.DateOfBirth != nil {
		if p.DateOfBirth.IsZero() {
			p.DateOfBirth = nil
		} else if p.DateOfBirth.After(labmodels.NewDate(s.now()).Time) {
			return apperr.Validation("date_of_birth must not be in the future")
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(term), limit, offset)
}
