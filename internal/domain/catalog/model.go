package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestType is an orderable, billable lab test.
type TestType struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Code        string          `db:"code" json:"code"`
	NormalRange *string         `db:"normal_range" json:"normal_range,omitempty"`
	Unit        *string         `db:"unit" json:"unit,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

func strPtr(s string) *string { return &s }

// Defaults is the catalog a fresh lab starts with.
func Defaults() []TestType {
	return []TestType{
		{Name: "Complete Blood Count", Code: "CBC", NormalRange: strPtr("4.5-11.0 x10³/μL"), Unit: strPtr("10³/μL"), Price: decimal.NewFromInt(500), Description: strPtr("Basic blood count test")},
		{Name: "Blood Sugar Fasting", Code: "BSF", NormalRange: strPtr("70-100 mg/dL"), Unit: strPtr("mg/dL"), Price: decimal.NewFromInt(200), Description: strPtr("Fasting blood glucose test")},
		{Name: "Blood Sugar Random", Code: "BSR", NormalRange: strPtr("<140 mg/dL"), Unit: strPtr("mg/dL"), Price: decimal.NewFromInt(150), Description: strPtr("Random blood glucose test")},
		{Name: "Hemoglobin", Code: "HGB", NormalRange: strPtr("12-16 g/dL"), Unit: strPtr("g/dL"), Price: decimal.NewFromInt(300), Description: strPtr("Hemoglobin level test")},
		{Name: "Cholesterol Total", Code: "CHOL", NormalRange: strPtr("<200 mg/dL"), Unit: strPtr("mg/dL"), Price: decimal.NewFromInt(400), Description: strPtr("Total cholesterol test")},
		{Name: "Liver Function Test", Code: "LFT", NormalRange: strPtr("Various"), Unit: strPtr("Various"), Price: decimal.NewFromInt(800), Description: strPtr("Complete liver function panel")},
		{Name: "Kidney Function Test", Code: "KFT", NormalRange: strPtr("Various"), Unit: strPtr("Various"), Price: decimal.NewFromInt(700), Description: strPtr("Complete kidney function panel")},
	}
}
