// Package export renders lab data for people outside the API: CSV datasets,
// a four-sheet workbook, printable report and bill PDFs, and timestamped
// backups written to an archive.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/domain/billing"
	"github.com/labdesk/labdesk/internal/domain/report"
	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

// Dataset names accepted by Table.
const (
	DatasetPatients = "patients"
	DatasetReports  = "reports"
	DatasetBills    = "bills"
	DatasetResults  = "results"
)

// Datasets lists every dataset in workbook sheet order.
var Datasets = []string{DatasetPatients, DatasetReports, DatasetBills, DatasetResults}

// Query narrows an export. Term applies to patients; From and To bound the
// test date of reports and results and the bill date of bills.
type Query struct {
	Term string
	From *labmodels.Date
	To   *labmodels.Date
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

type PatientRow struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth *labmodels.Date
	Gender      string
	Address     string
	CreatedAt   time.Time
}

type ReportRow struct {
	ID          uuid.UUID
	TestDate    labmodels.Date
	PatientName string
	Phone       string
	Doctor      string
	Technician  string
	Status      string
	Notes       string
}

type BillRow struct {
	ID          uuid.UUID
	BillDate    labmodels.Date
	PatientName string
	Phone       string
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Status      string
	Method      string
}

func (b BillRow) Balance() decimal.Decimal { return b.Total.Sub(b.Paid) }

type ResultRow struct {
	ReportID    uuid.UUID
	TestDate    labmodels.Date
	PatientName string
	Phone       string
	TestCode    string
	TestName    string
	ResultValue string
	NormalRange string
	Unit        string
	Flag        report.Flag
	Remarks     string
}

// Source reads the rows behind each dataset.
type Source interface {
	Patients(ctx context.Context, term string) ([]PatientRow, error)
	Reports(ctx context.Context, q Query) ([]ReportRow, error)
	Bills(ctx context.Context, q Query) ([]BillRow, error)
	Results(ctx context.Context, q Query) ([]ResultRow, error)
}

// ReportViews and BillViews load the documents rendered as PDFs.
type ReportViews interface {
	GetReportView(ctx context.Context, id uuid.UUID) (*report.View, error)
}

type BillViews interface {
	GetBillView(ctx context.Context, id uuid.UUID) (*billing.View, error)
}

// LabInfo is printed in the header of every PDF.
type LabInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

type Service struct {
	source  Source
	reports ReportViews
	bills   BillViews
	archive Archiver
	lab     LabInfo
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(source Source, reports ReportViews, bills BillViews, lab LabInfo, logger zerolog.Logger) *Service {
	return &Service{
		source:  source,
		reports: reports,
		bills:   bills,
		lab:     lab,
		logger:  logger.With().Str("component", "export").Logger(),
		now:     time.Now,
	}
}

// SetArchiver enables Backup.
func (s *Service) SetArchiver(a Archiver) {
	s.archive = a
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func validateQuery(q Query) error {
	if q.From != nil && q.To != nil && q.From.After(q.To.Time) {
		return apperr.Validation("from must not be after to")
	}
	return nil
}

// Table loads one dataset as a header plus typed cells.
func (s *Service) Table(ctx context.Context, dataset string, q Query) (*Table, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	switch dataset {
	case DatasetPatients:
		rows, err := s.source.Patients(ctx, q.Term)
		if err != nil {
			return nil, err
		}
		return patientTable(rows), nil
	case DatasetReports:
		rows, err := s.source.Reports(ctx, q)
		if err != nil {
			return nil, err
		}
		return reportTable(rows), nil
	case DatasetBills:
		rows, err := s.source.Bills(ctx, q)
		if err != nil {
			return nil, err
		}
		return billTable(rows), nil
	case DatasetResults:
		rows, err := s.source.Results(ctx, q)
		if err != nil {
			return nil, err
		}
		return resultTable(rows), nil
	}
	return nil, apperr.NotFoundMessage(fmt.Sprintf("dataset %q not found", dataset))
}
