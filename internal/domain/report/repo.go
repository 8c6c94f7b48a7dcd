package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	// MissingTestTypes returns the ids that have no test type, in input order.
	MissingTestTypes(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	Create(ctx context.Context, r *Report) error
	CreatePlaceholder(ctx context.Context, reportID, testTypeID uuid.UUID) error
	// Lock loads the report header and holds a row lock until the
	// surrounding transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (*Report, error)
	// UpdateResult fills the placeholder for in.TestTypeID and reports how many
	// rows it touched.
	UpdateResult(ctx context.Context, reportID uuid.UUID, in ResultInput) (int64, error)
	CountEmptyResults(ctx context.Context, reportID uuid.UUID) (int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	GetView(ctx context.Context, id uuid.UUID) (*View, error)
	List(ctx context.Context, f Filter) ([]*Report, int, error)
}
