package report

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/db"
	"github.com/labdesk/labdesk/internal/platform/events"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Service struct {
	repo   Repository
	tx     db.TxRunner
	pub    events.Publisher
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.TxRunner, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		repo:   repo,
		tx:     tx,
		pub:    pub,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// dedupe drops repeated ids, keeping first occurrence order.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateReport opens a pending report with one empty result per ordered test.
func (s *Service) CreateReport(ctx context.Context, req CreateRequest) (*Report, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if req.TestDate.IsZero() {
		return nil, apperr.Validation("test_date is required")
	}
	ids := dedupe(req.TestTypeIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("at least one test is required")
	}

	rp := &Report{
		PatientID:     req.PatientID,
		TestDate:      req.TestDate,
		DoctorName:    req.DoctorName,
		LabTechnician: req.LabTechnician,
		Status:        labmodels.ReportPending,
		Notes:         strings.TrimSpace(req.Notes),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.PatientExists(ctx, req.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("patient")
		}
		missing, err := s.repo.MissingTestTypes(ctx, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apperr.NotFoundMessage("test type " + missing[0].String() + " not found")
		}
		if err := s.repo.Create(ctx, rp); err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.repo.CreatePlaceholder(ctx, rp.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("report_id", rp.ID.String()).Int("tests", len(ids)).Msg("report created")
	events.Emit(ctx, s.pub, s.logger, events.New(events.ReportCreated, rp.ID, rp.PatientID,
		map[string]interface{}{"tests": len(ids)}))
	return rp, nil
}

// RecordResults fills placeholders on a report. The report completes once no
// placeholder is left empty, and a completed report rejects blank values.
// Every entry is applied or none is.
func (s *Service) RecordResults(ctx context.Context, reportID uuid.UUID, results []ResultInput) (string, error) {
	if len(results) == 0 {
		return "", apperr.Validation("no results supplied")
	}
	for i := range results {
		if results[i].TestTypeID == uuid.Nil {
			return "", apperr.Validation("results[%d]: test_type_id is required", i)
		}
		results[i].ResultValue = strings.TrimSpace(results[i].ResultValue)
		results[i].Remarks = strings.TrimSpace(results[i].Remarks)
	}

	var (
		rp        *Report
		completed bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rp, err = s.repo.Lock(ctx, reportID)
		if err != nil {
			return err
		}
		if rp.Status == labmodels.ReportReviewed {
			return apperr.Validation("report already reviewed")
		}
		// A completed report keeps every value filled.
		if rp.Status == labmodels.ReportCompleted {
			for i, in := range results {
				if in.ResultValue == "" {
					return apperr.Validation("results[%d]: result_value is required on a completed report", i)
				}
			}
		}

		for _, in := range results {
			n, err := s.repo.UpdateResult(ctx, reportID, in)
			if err != nil {
				return err
			}
			if n == 0 {
				return apperr.Validation("test type %s is not part of this report", in.TestTypeID)
			}
		}

		empty, err := s.repo.CountEmptyResults(ctx, reportID)
		if err != nil {
			return err
		}
		if empty == 0 && rp.Status == labmodels.ReportPending {
			if err := s.repo.SetStatus(ctx, reportID, labmodels.ReportCompleted); err != nil {
				return err
			}
			rp.Status = labmodels.ReportCompleted
			completed = true
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("report_id", reportID.String()).Int("results", len(results)).
		Str("status", rp.Status).Msg("results recorded")
	if completed {
		events.Emit(ctx, s.pub, s.logger, events.New(events.ReportCompleted, reportID, rp.PatientID, nil))
	}
	return rp.Status, nil
}

// ReviewReport signs off a completed report.
func (s *Service) ReviewReport(ctx context.Context, reportID uuid.UUID) error {
	var rp *Report
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		rp, err = s.repo.Lock(ctx, reportID)
		if err != nil {
			return err
		}
		switch rp.Status {
		case labmodels.ReportCompleted:
		case labmodels.ReportReviewed:
			return apperr.Validation("report already reviewed")
		default:
			return apperr.Validation("report is %s; only completed reports can be reviewed", rp.Status)
		}
		return s.repo.SetStatus(ctx, reportID, labmodels.ReportReviewed)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("report_id", reportID.String()).Msg("report reviewed")
	events.Emit(ctx, s.pub, s.logger, events.New(events.ReportReviewed, reportID, rp.PatientID, nil))
	return nil
}

func (s *Service) GetReportView(ctx context.Context, reportID uuid.UUID) (*View, error) {
	return s.repo.GetView(ctx, reportID)
}

func (s *Service) ListReports(ctx context.Context, f Filter) ([]*Report, int, error) {
	if f.Status != "" && !labmodels.ValidReportStatus(f.Status) {
		return nil, 0, apperr.Validation("invalid status %q", f.Status)
	}
	if f.From != nil && f.To != nil && f.From.After(f.To.Time) {
		return nil, 0, apperr.Validation("from must not be after to")
	}
	return s.repo.List(ctx, f)
}
