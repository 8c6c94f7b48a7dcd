// Package analytics computes read-only rollups over patients, reports and
// bills: revenue, test popularity, patient activity, outstanding aging and
// month-over-month performance. Every figure is recomputed per call.
package analytics

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

// ---------------------------------------------------------------------------
// Inputs
// ---------------------------------------------------------------------------

// Range is an inclusive span of calendar dates.
type Range struct {
	From labmodels.Date `json:"from"`
	To   labmodels.Date `json:"to"`
}

// StatusTotals is one payment_status group of bills in a range.
type StatusTotals struct {
	Status    string
	Count     int
	Billed    decimal.Decimal
	Collected decimal.Decimal
}

// PatientActivity is one patient with at least one report in a range.
type PatientActivity struct {
	PatientID uuid.UUID
	Gender    string
	Reports   int
}

// OutstandingBill is an unpaid or partially paid bill with its patient.
type OutstandingBill struct {
	BillID      uuid.UUID
	PatientID   uuid.UUID
	PatientName string
	Phone       string
	BillDate    labmodels.Date
	Total       decimal.Decimal
	Paid        decimal.Decimal
}

func (b OutstandingBill) Due() decimal.Decimal { return b.Total.Sub(b.Paid) }

// ---------------------------------------------------------------------------
// Outputs
// ---------------------------------------------------------------------------

type StatusBreakdown struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type RevenueSummary struct {
	Range
	TotalBilled    decimal.Decimal   `json:"total_billed"`
	TotalCollected decimal.Decimal   `json:"total_collected"`
	Outstanding    decimal.Decimal   `json:"outstanding"`
	CollectionRate decimal.Decimal   `json:"collection_rate"`
	BillCount      int               `json:"bill_count"`
	ByStatus       []StatusBreakdown `json:"by_status"`
}

type TestCount struct {
	TestTypeID uuid.UUID       `json:"test_type_id"`
	Name       string          `json:"name"`
	Code       string          `json:"code"`
	Count      int             `json:"count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type FlagDistribution struct {
	Normal   int `json:"normal"`
	Abnormal int `json:"abnormal"`
	Pending  int `json:"pending"`
}

func (d FlagDistribution) Total() int { return d.Normal + d.Abnormal + d.Pending }

type TestStatistics struct {
	Range
	TotalTests      int              `json:"total_tests"`
	TopTests        []TestCount      `json:"top_tests"`
	Distribution    FlagDistribution `json:"distribution"`
	AbnormalityRate decimal.Decimal  `json:"abnormality_rate"`
}

type GenderCount struct {
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

type PatientStatistics struct {
	Range
	NewPatients    int             `json:"new_patients"`
	ActivePatients int             `json:"active_patients"`
	RepeatPatients int             `json:"repeat_patients"`
	RepeatRate     decimal.Decimal `json:"repeat_rate"`
	Genders        []GenderCount   `json:"genders"`
}

type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type OutstandingPatient struct {
	PatientID uuid.UUID       `json:"patient_id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Amount    decimal.Decimal `json:"amount"`
	Bills     int             `json:"bills"`
}

type OutstandingAging struct {
	AsOf        labmodels.Date       `json:"as_of"`
	Total       decimal.Decimal      `json:"total"`
	Buckets     []AgingBucket        `json:"buckets"`
	TopPatients []OutstandingPatient `json:"top_patients"`
}

// PeriodMetrics are bill-side totals over a range. Reports counts the
// distinct reports those bills were derived from.
type PeriodMetrics struct {
	Range
	Bills      int             `json:"bills"`
	Reports    int             `json:"reports"`
	Patients   int             `json:"patients"`
	Revenue    decimal.Decimal `json:"revenue"`
	Collection decimal.Decimal `json:"collection"`
}

type Growth struct {
	Bills    decimal.Decimal `json:"bills"`
	Reports  decimal.Decimal `json:"reports"`
	Patients decimal.Decimal `json:"patients"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Performance struct {
	CurrentMonth  PeriodMetrics `json:"current_month"`
	PreviousMonth PeriodMetrics `json:"previous_month"`
	Growth        Growth        `json:"growth"`
}

type DailyRevenue struct {
	Date       labmodels.Date  `json:"date"`
	Revenue    decimal.Decimal `json:"revenue"`
	Collection decimal.Decimal `json:"collection"`
	Bills      int             `json:"bills"`
}

type MonthlyMetrics struct {
	Month string `json:"month"`
	PeriodMetrics
}

type Overview struct {
	Revenue     *RevenueSummary    `json:"revenue"`
	Tests       *TestStatistics    `json:"tests"`
	Patients    *PatientStatistics `json:"patients"`
	Outstanding *OutstandingAging  `json:"outstanding"`
	Performance *Performance       `json:"performance"`
}
