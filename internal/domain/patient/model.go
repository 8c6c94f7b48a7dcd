package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Patient struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	FirstName        string          `db:"first_name" json:"first_name"`
	LastName         string          `db:"last_name" json:"last_name"`
	PhoneNumber      string          `db:"phone_number" json:"phone_number"`
	Email            *string         `db:"email" json:"email,omitempty"`
	DateOfBirth      *labmodels.Date `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           *string         `db:"gender" json:"gender,omitempty"`
	Address          *string         `db:"address" json:"address,omitempty"`
	EmergencyContact *string         `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   *string         `db:"emergency_phone" json:"emergency_phone,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
