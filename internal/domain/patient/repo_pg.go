package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labdesk/labdesk/internal/platform/db"
)

type patientRepoPG struct{ pool db.DB }

func NewRepoPG(pool db.DB) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, first_name, last_name, phone_number, email, date_of_birth, gender,
	address, emergency_contact, emergency_phone, created_at, updated_at`

var constraints = db.Constraints{
	"patients_phone_number_key": "phone number already registered",
	"patients_gender_check":     "gender must be Male, Female or Other",
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.PhoneNumber, &p.Email, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.EmergencyContact, &p.EmergencyPhone, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, phone_number, email, date_of_birth, gender,
			address, emergency_contact, emergency_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.PhoneNumber, p.Email, p.DateOfBirth, p.Gender,
		p.Address, p.EmergencyContact, p.EmergencyPhone).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.TranslateError(err, "patient", constraints)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "patient", nil)
	}
	return p, nil
}

// LikePattern escapes LIKE metacharacters so the term matches literally.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func (r *patientRepoPG) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	where := ""
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		where = ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR phone_number ILIKE $1`
		args = append(args, LikePattern(term))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "patient", nil)
	}

	n := len(args)
	query := `SELECT ` + patientCols + ` FROM patients` + where +
		` ORDER BY last_name, first_name, created_at` +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.TranslateError(err, "patient", nil)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, "patient", nil)
		}
		items = append(items, p)
	}
	return items, total, db.TranslateError(rows.Err(), "patient", nil)
}
