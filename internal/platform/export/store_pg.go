package export

import (
	"context"
	"strconv"
	"strings"

	"github.com/labdesk/labdesk/internal/domain/patient"
	"github.com/labdesk/labdesk/internal/domain/report"
	"github.com/labdesk/labdesk/internal/platform/db"
)

type sourcePG struct{ pool db.Querier }

// NewSourcePG returns a Source reading from pool.
func NewSourcePG(pool db.Querier) Source { return &sourcePG{pool: pool} }

// dateRange appends bounds on column to args and returns the WHERE clause.
func dateRange(column string, q Query, args []any) (string, []any) {
	var conds []string
	if q.From != nil {
		args = append(args, *q.From)
		conds = append(conds, column+" >= $"+strconv.Itoa(len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		conds = append(conds, column+" <= $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *sourcePG) Patients(ctx context.Context, term string) ([]PatientRow, error) {
	query := `SELECT id, first_name, last_name, phone_number, date_of_birth,
		COALESCE(gender, ''), COALESCE(address, ''), created_at FROM patients`
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		query += ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR phone_number ILIKE $1`
		args = append(args, patient.LikePattern(term))
	}
	query += ` ORDER BY last_name, first_name, created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.TranslateError(err, "patient", nil)
	}
	defer rows.Close()

	var out []PatientRow
	for rows.Next() {
		var p PatientRow
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.DateOfBirth,
			&p.Gender, &p.Address, &p.CreatedAt); err != nil {
			return nil, db.TranslateError(err, "patient", nil)
		}
		out = append(out, p)
	}
	return out, db.TranslateError(rows.Err(), "patient", nil)
}

func (s *sourcePG) Reports(ctx context.Context, q Query) ([]ReportRow, error) {
	where, args := dateRange("br.test_date", q, nil)
	rows, err := s.pool.Query(ctx, `
		SELECT br.id, br.test_date, p.first_name || ' ' || p.last_name, p.phone_number,
			COALESCE(br.doctor_name, ''), COALESCE(br.lab_technician, ''), br.status, br.notes
		FROM blood_reports br
		JOIN patients p ON p.id = br.patient_id`+where+`
		ORDER BY br.test_date DESC, br.created_at DESC`, args...)
	if err != nil {
		return nil, db.TranslateError(err, "report", nil)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.ID, &r.TestDate, &r.PatientName, &r.Phone,
			&r.Doctor, &r.Technician, &r.Status, &r.Notes); err != nil {
			return nil, db.TranslateError(err, "report", nil)
		}
		out = append(out, r)
	}
	return out, db.TranslateError(rows.Err(), "report", nil)
}

func (s *sourcePG) Bills(ctx context.Context, q Query) ([]BillRow, error) {
	where, args := dateRange("b.bill_date", q, nil)
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.bill_date, p.first_name || ' ' || p.last_name, p.phone_number,
			b.total_amount, b.paid_amount, b.payment_status, b.payment_method
		FROM bills b
		JOIN patients p ON p.id = b.patient_id`+where+`
		ORDER BY b.bill_date DESC, b.created_at DESC`, args...)
	if err != nil {
		return nil, db.TranslateError(err, "bill", nil)
	}
	defer rows.Close()

	var out []BillRow
	for rows.Next() {
		var b BillRow
		if err := rows.Scan(&b.ID, &b.BillDate, &b.PatientName, &b.Phone,
			&b.Total, &b.Paid, &b.Status, &b.Method); err != nil {
			return nil, db.TranslateError(err, "bill", nil)
		}
		out = append(out, b)
	}
	return out, db.TranslateError(rows.Err(), "bill", nil)
}

func (s *sourcePG) Results(ctx context.Context, q Query) ([]ResultRow, error) {
	where, args := dateRange("br.test_date", q, nil)
	rows, err := s.pool.Query(ctx, `
		SELECT br.id, br.test_date, p.first_name || ' ' || p.last_name, p.phone_number,
			tt.code, tt.name, tr.result_value, COALESCE(tt.normal_range, ''), COALESCE(tt.unit, ''),
			tr.is_normal, tr.remarks
		FROM blood_reports br
		JOIN patients p ON p.id = br.patient_id
		JOIN test_results tr ON tr.report_id = br.id
		JOIN test_types tt ON tt.id = tr.test_type_id`+where+`
		ORDER BY br.test_date, br.id, tt.name`, args...)
	if err != nil {
		return nil, db.TranslateError(err, "test result", nil)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var (
			r        ResultRow
			isNormal *bool
		)
		if err := rows.Scan(&r.ReportID, &r.TestDate, &r.PatientName, &r.Phone,
			&r.TestCode, &r.TestName, &r.ResultValue, &r.NormalRange, &r.Unit,
			&isNormal, &r.Remarks); err != nil {
			return nil, db.TranslateError(err, "test result", nil)
		}
		r.Flag = report.FlagFromNullable(isNormal)
		out = append(out, r)
	}
	return out, db.TranslateError(rows.Err(), "test result", nil)
}
