package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *TestType) error
	// CreateIfAbsent inserts t unless its code is taken and reports whether it did.
	CreateIfAbsent(ctx context.Context, t *TestType) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TestType, error)
	List(ctx context.Context) ([]*TestType, error)
}
