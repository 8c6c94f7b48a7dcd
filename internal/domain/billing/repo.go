package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	// TestTypePrices returns the current price of each known id.
	TestTypePrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// LockReport loads a report header and holds its row lock until the
	// surrounding transaction ends.
	LockReport(ctx context.Context, reportID uuid.UUID) (*ReportHeader, error)
	ReportBilled(ctx context.Context, reportID uuid.UUID) (bool, error)
	ReportLines(ctx context.Context, reportID uuid.UUID) ([]ReportLine, error)

	Create(ctx context.Context, b *Bill) error
	CreateItem(ctx context.Context, it *Item) error
	// Lock loads a bill and holds its row lock until the surrounding
	// transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (*Bill, error)
	UpdatePayment(ctx context.Context, b *Bill) error

	GetView(ctx context.Context, id uuid.UUID) (*View, error)
	List(ctx context.Context, f Filter) ([]*Bill, int, error)
}
