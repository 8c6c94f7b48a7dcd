package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Bill struct {
	ID            uuid.UUID       `json:"id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	ReportID      *uuid.UUID      `json:"report_id,omitempty"`
	BillDate      labmodels.Date  `json:"bill_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Balance is what the patient still owes. Negative after an overpayment.
func (b *Bill) Balance() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}

type Item struct {
	ID         uuid.UUID       `json:"id"`
	BillID     uuid.UUID       `json:"bill_id"`
	TestTypeID uuid.UUID       `json:"test_type_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ItemInput is an optional line on a manual bill. UnitPrice defaults to the
// current catalog price and Quantity to 1.
type ItemInput struct {
	TestTypeID uuid.UUID        `json:"test_type_id"`
	Quantity   int              `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
}

type ManualBillRequest struct {
	PatientID     uuid.UUID       `json:"patient_id"`
	BillDate      labmodels.Date  `json:"bill_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Items         []ItemInput     `json:"items"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

// ReportHeader is the locked report a bill is derived from.
type ReportHeader struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	TestDate  labmodels.Date
}

// ReportLine is one ordered test with its current catalog price.
type ReportLine struct {
	TestTypeID uuid.UUID
	Price      decimal.Decimal
}

// PatientInfo is the bill-to identity.
type PatientInfo struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	Email       *string   `json:"email,omitempty"`
	Address     *string   `json:"address,omitempty"`
}

func (p PatientInfo) FullName() string { return p.FirstName + " " + p.LastName }

type ItemView struct {
	Item
	TestName string `json:"test_name"`
	TestCode string `json:"test_code"`
}

type View struct {
	Bill
	Patient PatientInfo     `json:"patient"`
	Items   []ItemView      `json:"items"`
	Balance decimal.Decimal `json:"balance"`
}

// Subtotal sums the line totals.
func (v *View) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range v.Items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

type Filter struct {
	PatientID *uuid.UUID
	Status    string
	From      *labmodels.Date
	To        *labmodels.Date
	Limit     int
	Offset    int
}
