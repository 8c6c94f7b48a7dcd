package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/platform/money"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

// Table is a dataset ready for CSV or a workbook sheet. Cells hold strings,
// dates, timestamps or decimals; each format decides how to print them.
type Table struct {
	Name   string
	Sheet  string
	Header []string
	Rows   [][]any
}

func optionalDate(d *labmodels.Date) any {
	if d == nil {
		return ""
	}
	return *d
}

func patientTable(rows []PatientRow) *Table {
	t := &Table{
		Name:   DatasetPatients,
		Sheet:  "Patients",
		Header: []string{"Patient ID", "First Name", "Last Name", "Phone Number", "Date of Birth", "Gender", "Address", "Created Date"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, p := range rows {
		t.Rows = append(t.Rows, []any{
			p.ID.String(), p.FirstName, p.LastName, p.Phone,
			optionalDate(p.DateOfBirth), p.Gender, p.Address, p.CreatedAt,
		})
	}
	return t
}

func reportTable(rows []ReportRow) *Table {
	t := &Table{
		Name:   DatasetReports,
		Sheet:  "Blood Reports",
		Header: []string{"Report ID", "Test Date", "Patient Name", "Phone Number", "Doctor", "Lab Technician", "Status", "Notes"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ID.String(), r.TestDate, r.PatientName, r.Phone,
			r.Doctor, r.Technician, r.Status, r.Notes,
		})
	}
	return t
}

func billTable(rows []BillRow) *Table {
	t := &Table{
		Name:   DatasetBills,
		Sheet:  "Bills",
		Header: []string{"Bill ID", "Bill Date", "Patient Name", "Phone Number", "Total Amount", "Paid Amount", "Balance", "Payment Status", "Payment Method"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, b := range rows {
		t.Rows = append(t.Rows, []any{
			b.ID.String(), b.BillDate, b.PatientName, b.Phone,
			b.Total, b.Paid, b.Balance(), b.Status, b.Method,
		})
	}
	return t
}

func resultTable(rows []ResultRow) *Table {
	t := &Table{
		Name:   DatasetResults,
		Sheet:  "Test Results",
		Header: []string{"Report ID", "Test Date", "Patient Name", "Phone Number", "Test Code", "Test Name", "Result Value", "Normal Range", "Unit", "Status", "Remarks"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ReportID.String(), r.TestDate, r.PatientName, r.Phone,
			r.TestCode, r.TestName, r.ResultValue, r.NormalRange, r.Unit,
			r.Flag.Label(), r.Remarks,
		})
	}
	return t
}

// cellString is the CSV rendering of a cell.
func cellString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case labmodels.Date:
		return c.String()
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c.UTC().Format("2006-01-02 15:04:05")
	case decimal.Decimal:
		return money.String(c)
	}
	return ""
}
