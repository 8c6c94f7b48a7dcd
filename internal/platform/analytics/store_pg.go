package analytics

import (
	"context"

	"github.com/labdesk/labdesk/internal/platform/db"
)

type storePG struct{ pool db.Querier }

// NewStorePG returns a Store reading from pool.
func NewStorePG(pool db.Querier) Store { return &storePG{pool: pool} }

func (s *storePG) BillTotalsByStatus(ctx context.Context, r Range) ([]StatusTotals, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payment_status, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0)
		FROM bills
		WHERE bill_date BETWEEN $1 AND $2
		GROUP BY payment_status
		ORDER BY payment_status`, r.From, r.To)
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}
	defer rows.Close()

	var out []StatusTotals
	for rows.Next() {
		var t StatusTotals
		if err := rows.Scan(&t.Status, &t.Count, &t.Billed, &t.Collected); err != nil {
			return nil, db.TranslateError(err, "bill", nil)
		}
		out = append(out, t)
	}
	return out, db.TranslateError(rows.Err(), "bill", nil)
}

func (s *storePG) TestCounts(ctx context.Context, r Range) ([]TestCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tt.id, tt.name, tt.code, COUNT(*), COUNT(*) * tt.price
		FROM test_results tr
		JOIN blood_reports br ON br.id = tr.report_id
		JOIN test_types tt ON tt.id = tr.test_type_id
		WHERE br.test_date BETWEEN $1 AND $2
		GROUP BY tt.id, tt.name, tt.code, tt.price
		ORDER BY COUNT(*) DESC, tt.name`, r.From, r.To)
	if err != nil {
		return nil, db.TranslateError(err, "test result", nil)
	}
	defer rows.Close()

	var out []TestCount
	for rows.Next() {
		var t TestCount
		if err := rows.Scan(&t.TestTypeID, &t.Name, &t.Code, &t.Count, &t.Revenue); err != nil {
			return nil, db.TranslateError(err, "test result", nil)
		}
		out = append(out, t)
	}
	return out, db.TranslateError(rows.Err(), "test result", nil)
}

func (s *storePG) FlagCounts(ctx context.Context, r Range) (FlagDistribution, error) {
	var d FlagDistribution
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE tr.is_normal),
			COUNT(*) FILTER (WHERE NOT tr.is_normal),
			COUNT(*) FILTER (WHERE tr.is_normal IS NULL)
		FROM test_results tr
		JOIN blood_reports br ON br.id = tr.report_id
		WHERE br.test_date BETWEEN $1 AND $2`, r.From, r.To,
	).Scan(&d.Normal, &d.Abnormal, &d.Pending)
	return d, db.TranslateError(err, "test result", nil)
}

func (s *storePG) NewPatients(ctx context.Context, r Range) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM patients WHERE created_at::date BETWEEN $1 AND $2`, r.From, r.To,
	).Scan(&n)
	return n, db.TranslateError(err, "patient", nil)
}

func (s *storePG) PatientActivity(ctx context.Context, r Range) ([]PatientActivity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, COALESCE(p.gender, ''), COUNT(br.id)
		FROM blood_reports br
		JOIN patients p ON p.id = br.patient_id
		WHERE br.test_date BETWEEN $1 AND $2
		GROUP BY p.id, p.gender`, r.From, r.To)
	if err != nil {
		return nil, db.TranslateError(err, "report", nil)
	}
	defer rows.Close()

	var out []PatientActivity
	for rows.Next() {
		var a PatientActivity
		if err := rows.Scan(&a.PatientID, &a.Gender, &a.Reports); err != nil {
			return nil, db.TranslateError(err, "report", nil)
		}
		out = append(out, a)
	}
	return out, db.TranslateError(rows.Err(), "report", nil)
}

func (s *storePG) OutstandingBills(ctx context.Context) ([]OutstandingBill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.patient_id, p.first_name || ' ' || p.last_name, p.phone_number,
			b.bill_date, b.total_amount, b.paid_amount
		FROM bills b
		JOIN patients p ON p.id = b.patient_id
		WHERE b.payment_status <> 'paid'
		ORDER BY b.bill_date`)
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}
	defer rows.Close()

	var out []OutstandingBill
	for rows.Next() {
		var b OutstandingBill
		if err := rows.Scan(&b.BillID, &b.PatientID, &b.PatientName, &b.Phone,
			&b.BillDate, &b.Total, &b.Paid); err != nil {
			return nil, db.TranslateError(err, "bill", nil)
		}
		out = append(out, b)
	}
	return out, db.TranslateError(rows.Err(), "bill", nil)
}

func (s *storePG) Period(ctx context.Context, r Range) (PeriodMetrics, error) {
	m := PeriodMetrics{Range: r}
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT report_id), COUNT(DISTINCT patient_id),
			COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0)
		FROM bills
		WHERE bill_date BETWEEN $1 AND $2`, r.From, r.To,
	).Scan(&m.Bills, &m.Reports, &m.Patients, &m.Revenue, &m.Collection)
	return m, db.TranslateError(err, "bill", nil)
}

func (s *storePG) DailyRevenue(ctx context.Context, r Range) ([]DailyRevenue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bill_date, COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0), COUNT(*)
		FROM bills
		WHERE bill_date BETWEEN $1 AND $2
		GROUP BY bill_date
		ORDER BY bill_date`, r.From, r.To)
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}
	defer rows.Close()

	var out []DailyRevenue
	for rows.Next() {
		var d DailyRevenue
		if err := rows.Scan(&d.Date, &d.Revenue, &d.Collection, &d.Bills); err != nil {
			return nil, db.TranslateError(err, "bill", nil)
		}
		out = append(out, d)
	}
	return out, db.TranslateError(rows.Err(), "bill", nil)
}
