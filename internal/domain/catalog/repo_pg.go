package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labdesk/labdesk/internal/platform/db"
)

type testTypeRepoPG struct{ pool db.DB }

func NewRepoPG(pool db.DB) Repository { return &testTypeRepoPG{pool: pool} }

func (r *testTypeRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const testTypeCols = `id, name, code, normal_range, unit, price, description, created_at`

var constraints = db.Constraints{
	"test_types_code_key":    "test code already exists",
	"test_types_price_check": "price must not be negative",
}

func scanTestType(row pgx.Row) (*TestType, error) {
	var t TestType
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.NormalRange, &t.Unit, &t.Price, &t.Description, &t.CreatedAt)
	return &t, err
}

func (r *testTypeRepoPG) Create(ctx context.Context, t *TestType) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_types (id, name, code, normal_range, unit, price, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.Name, t.Code, t.NormalRange, t.Unit, t.Price, t.Description).Scan(&t.CreatedAt)
	return db.TranslateError(err, "test type", constraints)
}

func (r *testTypeRepoPG) CreateIfAbsent(ctx context.Context, t *TestType) (bool, error) {
	t.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO test_types (id, name, code, normal_range, unit, price, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO NOTHING`,
		t.ID, t.Name, t.Code, t.NormalRange, t.Unit, t.Price, t.Description)
	if err != nil {
		return false, db.TranslateError(err, "test type", constraints)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *testTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestType, error) {
	t, err := scanTestType(r.conn(ctx).QueryRow(ctx, `SELECT `+testTypeCols+` FROM test_types WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "test type", nil)
	}
	return t, nil
}

func (r *testTypeRepoPG) List(ctx context.Context) ([]*TestType, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testTypeCols+` FROM test_types ORDER BY name, code`)
	if err != nil {
		return nil, db.TranslateError(err, "test type", nil)
	}
	defer rows.Close()

	var items []*TestType
	for rows.Next() {
		t, err := scanTestType(rows)
		if err != nil {
			return nil, db.TranslateError(err, "test type", nil)
		}
		items = append(items, t)
	}
	return items, db.TranslateError(rows.Err(), "test type", nil)
}
