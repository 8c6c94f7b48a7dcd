package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// Search matches term case-insensitively against first name, last name
	// and phone number. An empty term matches every patient.
	Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error)
}
