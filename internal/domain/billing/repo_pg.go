package billing

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/platform/db"
)

type billRepoPG struct{ pool db.DB }

func NewRepoPG(pool db.DB) Repository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const billCols = `id, patient_id, report_id, bill_date, total_amount, paid_amount, payment_status,
	payment_method, discount, tax_amount, created_at, updated_at`

var constraints = db.Constraints{
	"bills_patient_id_fkey":        "patient not found",
	"bills_report_id_fkey":         "report not found",
	"bills_payment_status_check":   "invalid payment status",
	"bills_amounts_check":          "amounts must not be negative",
	"bill_items_test_type_id_fkey": "test type not found",
	"bill_items_bill_id_fkey":      "bill not found",
	"bill_items_quantity_check":    "quantity must be positive",
}

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.ReportID, &b.BillDate, &b.TotalAmount, &b.PaidAmount, &b.PaymentStatus,
		&b.PaymentMethod, &b.Discount, &b.TaxAmount, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *billRepoPG) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	return exists, db.TranslateError(err, "patient", nil)
}

func (r *billRepoPG) TestTypePrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, price FROM test_types WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, db.TranslateError(err, "test type", nil)
	}
	defer rows.Close()

	prices := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, db.TranslateError(err, "test type", nil)
		}
		prices[id] = price
	}
	return prices, db.TranslateError(rows.Err(), "test type", nil)
}

func (r *billRepoPG) LockReport(ctx context.Context, reportID uuid.UUID) (*ReportHeader, error) {
	var h ReportHeader
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, test_date FROM blood_reports WHERE id = $1 FOR UPDATE`, reportID,
	).Scan(&h.ID, &h.PatientID, &h.TestDate)
	if err != nil {
		return nil, db.TranslateError(err, "report", nil)
	}
	return &h, nil
}

func (r *billRepoPG) ReportBilled(ctx context.Context, reportID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE report_id = $1)`, reportID).Scan(&exists)
	return exists, db.TranslateError(err, "bill", nil)
}

func (r *billRepoPG) ReportLines(ctx context.Context, reportID uuid.UUID) ([]ReportLine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT tr.test_type_id, tt.price
		FROM test_results tr
		JOIN test_types tt ON tt.id = tr.test_type_id
		WHERE tr.report_id = $1
		ORDER BY tt.name, tt.code`, reportID)
	if err != nil {
		return nil, db.TranslateError(err, "test result", nil)
	}
	defer rows.Close()

	var lines []ReportLine
	for rows.Next() {
		var l ReportLine
		if err := rows.Scan(&l.TestTypeID, &l.Price); err != nil {
			return nil, db.TranslateError(err, "test result", nil)
		}
		lines = append(lines, l)
	}
	return lines, db.TranslateError(rows.Err(), "test result", nil)
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (id, patient_id, report_id, bill_date, total_amount, paid_amount, payment_status,
			payment_method, discount, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		b.ID, b.PatientID, b.ReportID, b.BillDate, b.TotalAmount, b.PaidAmount, b.PaymentStatus,
		b.PaymentMethod, b.Discount, b.TaxAmount,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return db.TranslateError(err, "bill", constraints)
}

func (r *billRepoPG) CreateItem(ctx context.Context, it *Item) error {
	it.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_items (id, bill_id, test_type_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.ID, it.BillID, it.TestTypeID, it.Quantity, it.UnitPrice, it.TotalPrice)
	return db.TranslateError(err, "bill item", constraints)
}

func (r *billRepoPG) Lock(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}
	return b, nil
}

func (r *billRepoPG) UpdatePayment(ctx context.Context, b *Bill) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bills SET paid_amount = $1, payment_status = $2, payment_method = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		b.PaidAmount, b.PaymentStatus, b.PaymentMethod, b.ID,
	).Scan(&b.UpdatedAt)
	return db.TranslateError(err, "bill", constraints)
}

func (r *billRepoPG) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	var v View
	p := &v.Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT b.id, b.patient_id, b.report_id, b.bill_date, b.total_amount, b.paid_amount, b.payment_status,
			b.payment_method, b.discount, b.tax_amount, b.created_at, b.updated_at,
			p.id, p.first_name, p.last_name, p.phone_number, p.email, p.address
		FROM bills b
		JOIN patients p ON p.id = b.patient_id
		WHERE b.id = $1`, id,
	).Scan(&v.ID, &v.PatientID, &v.ReportID, &v.BillDate, &v.TotalAmount, &v.PaidAmount, &v.PaymentStatus,
		&v.PaymentMethod, &v.Discount, &v.TaxAmount, &v.CreatedAt, &v.UpdatedAt,
		&p.ID, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.Email, &p.Address)
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT bi.id, bi.bill_id, bi.test_type_id, bi.quantity, bi.unit_price, bi.total_price, tt.name, tt.code
		FROM bill_items bi
		JOIN test_types tt ON tt.id = bi.test_type_id
		WHERE bi.bill_id = $1
		ORDER BY tt.name, tt.code`, id)
	if err != nil {
		return nil, db.TranslateError(err, "bill item", nil)
	}
	defer rows.Close()

	v.Items = []ItemView{}
	for rows.Next() {
		var it ItemView
		if err := rows.Scan(&it.ID, &it.BillID, &it.TestTypeID, &it.Quantity, &it.UnitPrice, &it.TotalPrice,
			&it.TestName, &it.TestCode); err != nil {
			return nil, db.TranslateError(err, "bill item", nil)
		}
		v.Items = append(v.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.TranslateError(err, "bill item", nil)
	}
	v.Balance = v.Bill.Balance()
	return &v, nil
}

func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.PatientID != nil {
		add("patient_id = ?", *f.PatientID)
	}
	if f.Status != "" {
		add("payment_status = ?", f.Status)
	}
	if f.From != nil {
		add("bill_date >= ?", *f.From)
	}
	if f.To != nil {
		add("bill_date <= ?", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *billRepoPG) List(ctx context.Context, f Filter) ([]*Bill, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bills`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "bill", nil)
	}

	n := len(args)
	query := `SELECT ` + billCols + ` FROM bills` + where +
		` ORDER BY bill_date DESC, created_at DESC` +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, db.TranslateError(err, "bill", nil)
	}
	defer rows.Close()

	var items []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, "bill", nil)
		}
		items = append(items, b)
	}
	return items, total, db.TranslateError(rows.Err(), "bill", nil)
}
