package report

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labdesk/labdesk/internal/platform/db"
)

type reportRepoPG struct{ pool db.DB }

func NewRepoPG(pool db.DB) Repository { return &reportRepoPG{pool: pool} }

func (r *reportRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const reportCols = `id, patient_id, test_date, doctor_name, lab_technician, status, notes, created_at, updated_at`

var constraints = db.Constraints{
	"blood_reports_patient_id_fkey":  "patient not found",
	"blood_reports_status_check":     "invalid report status",
	"test_results_test_type_id_fkey": "test type not found",
	"test_results_report_id_fkey":    "report not found",
	"test_results_report_test_key":   "test already ordered on this report",
}

func scanReport(row pgx.Row) (*Report, error) {
	var rp Report
	err := row.Scan(&rp.ID, &rp.PatientID, &rp.TestDate, &rp.DoctorName, &rp.LabTechnician,
		&rp.Status, &rp.Notes, &rp.CreatedAt, &rp.UpdatedAt)
	return &rp, err
}

func (r *reportRepoPG) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	return exists, db.TranslateError(err, "patient", nil)
}

func (r *reportRepoPG) MissingTestTypes(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id FROM test_types WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, db.TranslateError(err, "test type", nil)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, db.TranslateError(err, "test type", nil)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, db.TranslateError(err, "test type", nil)
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *reportRepoPG) Create(ctx context.Context, rp *Report) error {
	rp.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_reports (id, patient_id, test_date, doctor_name, lab_technician, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		rp.ID, rp.PatientID, rp.TestDate, rp.DoctorName, rp.LabTechnician, rp.Status, rp.Notes,
	).Scan(&rp.CreatedAt, &rp.UpdatedAt)
	return db.TranslateError(err, "report", constraints)
}

func (r *reportRepoPG) CreatePlaceholder(ctx context.Context, reportID, testTypeID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO test_results (id, report_id, test_type_id, result_value, is_normal, remarks)
		VALUES ($1, $2, $3, '', NULL, '')`,
		uuid.New(), reportID, testTypeID)
	return db.TranslateError(err, "test result", constraints)
}

func (r *reportRepoPG) Lock(ctx context.Context, id uuid.UUID) (*Report, error) {
	var rp Report
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, status FROM blood_reports WHERE id = $1 FOR UPDATE`, id,
	).Scan(&rp.ID, &rp.PatientID, &rp.Status)
	if err != nil {
		return nil, db.TranslateError(err, "report", nil)
	}
	return &rp, nil
}

func (r *reportRepoPG) UpdateResult(ctx context.Context, reportID uuid.UUID, in ResultInput) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE test_results SET result_value = $1, is_normal = $2, remarks = $3
		WHERE report_id = $4 AND test_type_id = $5`,
		in.ResultValue, in.Flag.Nullable(), in.Remarks, reportID, in.TestTypeID)
	if err != nil {
		return 0, db.TranslateError(err, "test result", constraints)
	}
	return tag.RowsAffected(), nil
}

func (r *reportRepoPG) CountEmptyResults(ctx context.Context, reportID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM test_results WHERE report_id = $1 AND result_value = ''`, reportID,
	).Scan(&n)
	return n, db.TranslateError(err, "test result", nil)
}

func (r *reportRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_reports SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return db.TranslateError(err, "report", constraints)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows, "report", nil)
	}
	return nil
}

func (r *reportRepoPG) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	var v View
	p := &v.Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT r.id, r.patient_id, r.test_date, r.doctor_name, r.lab_technician, r.status, r.notes,
			r.created_at, r.updated_at,
			p.id, p.first_name, p.last_name, p.phone_number, p.gender, p.date_of_birth, p.email
		FROM blood_reports r
		JOIN patients p ON p.id = r.patient_id
		WHERE r.id = $1`, id,
	).Scan(&v.ID, &v.PatientID, &v.TestDate, &v.DoctorName, &v.LabTechnician, &v.Status, &v.Notes,
		&v.CreatedAt, &v.UpdatedAt,
		&p.ID, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.Gender, &p.DateOfBirth, &p.Email)
	if err != nil {
		return nil, db.TranslateError(err, "report", nil)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT tr.id, tr.report_id, tr.test_type_id, tr.result_value, tr.is_normal, tr.remarks,
			tt.name, tt.code, tt.normal_range, tt.unit, tt.price
		FROM test_results tr
		JOIN test_types tt ON tt.id = tr.test_type_id
		WHERE tr.report_id = $1
		ORDER BY tt.name, tt.code`, id)
	if err != nil {
		return nil, db.TranslateError(err, "test result", nil)
	}
	defer rows.Close()

	v.Results = []ResultView{}
	for rows.Next() {
		var rv ResultView
		var isNormal *bool
		if err := rows.Scan(&rv.ID, &rv.ReportID, &rv.TestTypeID, &rv.ResultValue, &isNormal, &rv.Remarks,
			&rv.TestName, &rv.TestCode, &rv.NormalRange, &rv.Unit, &rv.Price); err != nil {
			return nil, db.TranslateError(err, "test result", nil)
		}
		rv.Flag = FlagFromNullable(isNormal)
		v.Results = append(v.Results, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, db.TranslateError(err, "test result", nil)
	}
	return &v, nil
}

// filterClause renders f as a WHERE clause with positional arguments.
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
		add("status = ?", f.Status)
	}
	if f.From != nil {
		add("test_date >= ?", *f.From)
	}
	if f.To != nil {
		add("test_date <= ?", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *reportRepoPG) List(ctx context.Context, f Filter) ([]*Report, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "report", nil)
	}

	n := len(args)
	query := `SELECT ` + reportCols + ` FROM blood_reports` + where +
		` ORDER BY test_date DESC, created_at DESC` +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, db.TranslateError(err, "report", nil)
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, "report", nil)
		}
		items = append(items, rp)
	}
	return items, total, db.TranslateError(rows.Err(), "report", nil)
}
