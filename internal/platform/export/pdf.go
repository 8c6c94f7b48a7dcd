package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/labdesk/labdesk/internal/domain/billing"
	"github.com/labdesk/labdesk/internal/domain/report"
	"github.com/labdesk/labdesk/internal/platform/money"
)

const (
	pageWidth   = 180.0 // A4 minus 15mm margins
	lineHeight  = 6.0
	generatedAt = "2006-01-02 15:04:05"
)

var (
	navy   = [3]int{46, 64, 87}
	grey   = [3]int{128, 128, 128}
	red    = [3]int{200, 0, 0}
	pinkBg = [3]int{255, 230, 230}
)

// ReportPDF renders a blood report. Reports that are not yet reviewed are
// stamped PRELIMINARY.
func (s *Service) ReportPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	v, err := s.reports.GetReportView(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := renderReport(s.lab, v, s.now())
	if err != nil {
		return nil, err
	}
	if v.Status == "reviewed" {
		return doc, nil
	}
	return stampPreliminary(doc)
}

// BillPDF renders a bill with its services and totals.
func (s *Service) BillPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	v, err := s.bills.GetBillView(ctx, id)
	if err != nil {
		return nil, err
	}
	return renderBill(s.lab, v, s.now())
}

// ---------------------------------------------------------------------------
// Layout helpers
// ---------------------------------------------------------------------------

type document struct {
	*fpdf.Fpdf
	tr func(string) string
}

func newDocument(title string, now time.Time) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 12, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title, true)
	pdf.SetCreator("labdesk", true)
	pdf.SetCreationDate(now)
	pdf.AddPage()
	return &document{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) color(c [3]int) { d.SetTextColor(c[0], c[1], c[2]) }

func (d *document) labHeader(lab LabInfo) {
	d.SetFont("Helvetica", "B", 16)
	d.color(navy)
	d.CellFormat(pageWidth*0.6, 8, d.tr(strings.ToUpper(lab.Name)), "", 0, "L", false, 0, "")
	d.SetFont("Helvetica", "", 10)
	d.CellFormat(pageWidth*0.4, 8, d.tr("Phone: "+lab.Phone), "", 1, "R", false, 0, "")
	d.color([3]int{0, 0, 0})
	d.CellFormat(pageWidth*0.6, lineHeight, d.tr(lab.Address), "", 0, "L", false, 0, "")
	email := ""
	if lab.Email != "" {
		email = "Email: " + lab.Email
	}
	d.CellFormat(pageWidth*0.4, lineHeight, d.tr(email), "", 1, "R", false, 0, "")
	d.SetDrawColor(navy[0], navy[1], navy[2])
	d.SetLineWidth(0.8)
	y := d.GetY() + 2
	d.Line(15, y, 15+pageWidth, y)
	d.SetLineWidth(0.2)
	d.Ln(8)
}

func (d *document) title(text string) {
	d.SetFont("Helvetica", "B", 18)
	d.color(navy)
	d.CellFormat(pageWidth, 10, text, "", 1, "C", false, 0, "")
	d.color([3]int{0, 0, 0})
	d.Ln(4)
}

func (d *document) section(text string) {
	d.SetFont("Helvetica", "B", 13)
	d.color(navy)
	d.CellFormat(pageWidth, 8, text, "", 1, "L", false, 0, "")
	d.color([3]int{0, 0, 0})
}

// pairs prints label/value rows in two columns.
func (d *document) pairs(rows [][2]string) {
	for _, r := range rows {
		d.SetFont("Helvetica", "B", 10)
		d.CellFormat(45, lineHeight, r[0], "", 0, "L", false, 0, "")
		d.SetFont("Helvetica", "", 10)
		d.MultiCell(pageWidth-45, lineHeight, d.tr(r[1]), "", "L", false)
	}
	d.Ln(4)
}

func (d *document) tableHeader(cols []string, widths []float64) {
	d.SetFont("Helvetica", "B", 10)
	d.SetFillColor(navy[0], navy[1], navy[2])
	d.SetTextColor(245, 245, 245)
	d.SetDrawColor(grey[0], grey[1], grey[2])
	for i, c := range cols {
		d.CellFormat(widths[i], 8, c, "1", 0, "L", true, 0, "")
	}
	d.Ln(-1)
	d.color([3]int{0, 0, 0})
	d.SetFont("Helvetica", "", 9)
}

func (d *document) paragraph(lines ...string) {
	d.SetFont("Helvetica", "", 10)
	for _, l := range lines {
		d.CellFormat(pageWidth, lineHeight, d.tr(l), "", 1, "L", false, 0, "")
	}
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func withUnit(value string, unit *string) string {
	if unit == nil || *unit == "" {
		return value
	}
	return strings.TrimSpace(value + " " + *unit)
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func renderReport(lab LabInfo, v *report.View, now time.Time) ([]byte, error) {
	d := newDocument("Blood Test Report", now)
	d.labHeader(lab)
	d.title("BLOOD TEST REPORT")

	d.pairs([][2]string{
		{"Report ID:", v.ID.String()},
		{"Report Date:", v.TestDate.String()},
		{"Status:", strings.ToUpper(v.Status)},
		{"Generated On:", now.Format(generatedAt)},
	})

	dob := "N/A"
	if v.Patient.DateOfBirth != nil {
		dob = v.Patient.DateOfBirth.String()
	}
	d.section("PATIENT INFORMATION")
	d.pairs([][2]string{
		{"Name:", v.Patient.FullName()},
		{"Phone:", v.Patient.PhoneNumber},
		{"Date of Birth:", dob},
		{"Gender:", orNA(v.Patient.Gender)},
	})

	notes := v.Notes
	d.section("MEDICAL INFORMATION")
	d.pairs([][2]string{
		{"Doctor:", orNA(v.DoctorName)},
		{"Lab Technician:", orNA(v.LabTechnician)},
		{"Notes:", orNA(&notes)},
	})

	d.section("TEST RESULTS")
	widths := []float64{50, 32, 38, 25, 35}
	d.tableHeader([]string{"Test Name", "Result", "Normal Range", "Status", "Remarks"}, widths)
	for _, r := range v.Results {
		value := r.ResultValue
		if value == "" {
			value = "PENDING"
		}
		cells := []string{
			fmt.Sprintf("%s (%s)", r.TestName, r.TestCode),
			withUnit(value, r.Unit),
			withUnit(orNA(r.NormalRange), r.Unit),
			strings.ToUpper(r.Flag.String()),
			r.Remarks,
		}
		for i, c := range cells {
			abnormal := i == 3 && r.Flag == report.FlagAbnormal
			if abnormal {
				d.SetFillColor(pinkBg[0], pinkBg[1], pinkBg[2])
				d.color(red)
				d.SetFont("Helvetica", "B", 9)
			}
			d.CellFormat(widths[i], 7, d.tr(c), "1", 0, "L", abnormal, 0, "")
			if abnormal {
				d.color([3]int{0, 0, 0})
				d.SetFont("Helvetica", "", 9)
			}
		}
		d.Ln(-1)
	}
	d.Ln(10)

	d.paragraph(
		"This report is computer generated and does not require signature.",
		"For any queries, please contact the laboratory.",
		"Keep this report safe for future reference.",
	)
	d.Ln(16)
	half := pageWidth / 2
	d.CellFormat(half, lineHeight, "_____________________", "", 0, "C", false, 0, "")
	d.CellFormat(half, lineHeight, "_____________________", "", 1, "C", false, 0, "")
	d.CellFormat(half, lineHeight, "Lab Technician", "", 0, "C", false, 0, "")
	d.CellFormat(half, lineHeight, "Doctor", "", 1, "C", false, 0, "")

	return d.bytes()
}

func renderBill(lab LabInfo, v *billing.View, now time.Time) ([]byte, error) {
	d := newDocument("Laboratory Bill", now)
	d.labHeader(lab)
	d.title("LABORATORY BILL")

	d.pairs([][2]string{
		{"Bill ID:", v.ID.String()},
		{"Bill Date:", v.BillDate.String()},
		{"Payment Status:", strings.ToUpper(v.PaymentStatus)},
		{"Generated On:", now.Format(generatedAt)},
	})

	d.section("BILL TO")
	d.pairs([][2]string{
		{"Name:", v.Patient.FullName()},
		{"Phone:", v.Patient.PhoneNumber},
		{"Address:", orNA(v.Patient.Address)},
	})

	d.section("SERVICES")
	widths := []float64{80, 25, 37.5, 37.5}
	d.tableHeader([]string{"Description", "Quantity", "Unit Price", "Total"}, widths)
	for _, it := range v.Items {
		d.CellFormat(widths[0], 7, d.tr(fmt.Sprintf("%s (%s)", it.TestName, it.TestCode)), "1", 0, "L", false, 0, "")
		d.CellFormat(widths[1], 7, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
		d.CellFormat(widths[2], 7, money.Label(it.UnitPrice), "1", 0, "R", false, 0, "")
		d.CellFormat(widths[3], 7, money.Label(it.TotalPrice), "1", 1, "R", false, 0, "")
	}
	d.Ln(6)

	summary := [][2]string{
		{"Subtotal:", money.Label(v.Subtotal())},
		{"Discount:", money.Label(v.Discount)},
		{"Tax (18% GST):", money.Label(v.TaxAmount)},
		{"TOTAL AMOUNT:", money.Label(v.TotalAmount)},
		{"PAID AMOUNT:", money.Label(v.PaidAmount)},
		{"BALANCE DUE:", money.Label(v.Balance)},
	}
	for i, row := range summary {
		style := ""
		if i >= 3 {
			style = "B"
		}
		d.SetFont("Helvetica", style, 10)
		d.CellFormat(pageWidth-40, lineHeight, row[0], "", 0, "R", false, 0, "")
		d.CellFormat(40, lineHeight, row[1], "", 1, "R", false, 0, "")
	}
	d.Ln(6)

	if v.PaymentMethod != "" {
		d.paragraph("Payment Method: " + v.PaymentMethod)
		d.Ln(4)
	}
	d.paragraph(
		"Thank you for choosing our laboratory services.",
		"Please retain this bill for your records.",
	)
	d.Ln(6)
	d.section("TERMS & CONDITIONS")
	d.paragraph(
		"1. Payment is due within 30 days of bill date.",
		"2. Late payment charges may apply after due date.",
		"3. All reports are confidential and property of the patient.",
		"4. Laboratory reserves the right to charge for duplicate reports.",
	)

	return d.bytes()
}

// ---------------------------------------------------------------------------
// Watermark
// ---------------------------------------------------------------------------

const preliminaryStamp = "fontname:Helvetica-Bold, fillcolor:#C0392B, opacity:0.25"

var pdfcpuInit sync.Once

func pdfcpuConfig() *model.Configuration {
	pdfcpuInit.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

func stampPreliminary(doc []byte) ([]byte, error) {
	wm, err := api.TextWatermark("PRELIMINARY", preliminaryStamp, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build watermark: %w", err)
	}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc), &out, nil, wm, pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("stamp preliminary: %w", err)
	}
	return out.Bytes(), nil
}
