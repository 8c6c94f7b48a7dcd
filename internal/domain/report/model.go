package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Report struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	TestDate      labmodels.Date `json:"test_date"`
	DoctorName    *string        `json:"doctor_name,omitempty"`
	LabTechnician *string        `json:"lab_technician,omitempty"`
	Status        string         `json:"status"`
	Notes         string         `json:"notes"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Result struct {
	ID          uuid.UUID `json:"id"`
	ReportID    uuid.UUID `json:"report_id"`
	TestTypeID  uuid.UUID `json:"test_type_id"`
	ResultValue string    `json:"result_value"`
	Flag        Flag      `json:"flag"`
	Remarks     string    `json:"remarks"`
}

// CreateRequest orders a set of tests for a patient.
type CreateRequest struct {
	PatientID     uuid.UUID      `json:"patient_id"`
	TestDate      labmodels.Date `json:"test_date"`
	DoctorName    *string        `json:"doctor_name"`
	LabTechnician *string        `json:"lab_technician"`
	Notes         string         `json:"notes"`
	TestTypeIDs   []uuid.UUID    `json:"test_type_ids"`
}

// ResultInput fills the placeholder for one test on a report.
type ResultInput struct {
	TestTypeID  uuid.UUID `json:"test_type_id"`
	ResultValue string    `json:"result_value"`
	Flag        Flag      `json:"flag"`
	Remarks     string    `json:"remarks"`
}

// PatientInfo is the patient identity shown on a report.
type PatientInfo struct {
	ID          uuid.UUID       `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	PhoneNumber string          `json:"phone_number"`
	Gender      *string         `json:"gender,omitempty"`
	DateOfBirth *labmodels.Date `json:"date_of_birth,omitempty"`
	Email       *string         `json:"email,omitempty"`
}

func (p PatientInfo) FullName() string { return p.FirstName + " " + p.LastName }

// ResultView is a result joined with its test type.
type ResultView struct {
	Result
	TestName    string          `json:"test_name"`
	TestCode    string          `json:"test_code"`
	NormalRange *string         `json:"normal_range,omitempty"`
	Unit        *string         `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type View struct {
	Report
	Patient PatientInfo  `json:"patient"`
	Results []ResultView `json:"results"`
}

type Filter struct {
	PatientID *uuid.UUID
	Status    string
	From      *labmodels.Date
	To        *labmodels.Date
	Limit     int
	Offset    int
}
