package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

const (
	DefaultTopTests     = 10
	DefaultTrendDays    = 30
	DefaultCompareMonth = 6
	topOutstanding      = 10
)

// Store is the read side the aggregator needs. Every range is inclusive.
type Store interface {
	BillTotalsByStatus(ctx context.Context, r Range) ([]StatusTotals, error)
	// TestCounts returns every test ordered in range with its count and
	// count x current price.
	TestCounts(ctx context.Context, r Range) ([]TestCount, error)
	FlagCounts(ctx context.Context, r Range) (FlagDistribution, error)
	NewPatients(ctx context.Context, r Range) (int, error)
	PatientActivity(ctx context.Context, r Range) ([]PatientActivity, error)
	OutstandingBills(ctx context.Context) ([]OutstandingBill, error)
	Period(ctx context.Context, r Range) (PeriodMetrics, error)
	DailyRevenue(ctx context.Context, r Range) ([]DailyRevenue, error)
}

type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "analytics").Logger(),
		now:    time.Now,
	}
}

// SetClock replaces the source of "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) today() labmodels.Date {
	return labmodels.NewDate(s.now())
}

// ResolveRange fills a missing bound with the first of the current month or
// today, and rejects inverted ranges.
func (s *Service) ResolveRange(from, to *labmodels.Date) (Range, error) {
	today := s.today()
	r := Range{From: today.FirstOfMonth(), To: today}
	if from != nil {
		r.From = *from
	}
	if to != nil {
		r.To = *to
	}
	if r.From.After(r.To.Time) {
		return Range{}, apperr.Validation("from must not be after to")
	}
	return r, nil
}

func (s *Service) Revenue(ctx context.Context, r Range) (*RevenueSummary, error) {
	groups, err := s.store.BillTotalsByStatus(ctx, r)
	if err != nil {
		return nil, err
	}
	return summarizeRevenue(r, groups), nil
}

func (s *Service) Tests(ctx context.Context, r Range, top int) (*TestStatistics, error) {
	if top <= 0 {
		top = DefaultTopTests
	}
	counts, err := s.store.TestCounts(ctx, r)
	if err != nil {
		return nil, err
	}
	dist, err := s.store.FlagCounts(ctx, r)
	if err != nil {
		return nil, err
	}
	return summarizeTests(r, counts, dist, top), nil
}

func (s *Service) Patients(ctx context.Context, r Range) (*PatientStatistics, error) {
	n, err := s.store.NewPatients(ctx, r)
	if err != nil {
		return nil, err
	}
	active, err := s.store.PatientActivity(ctx, r)
	if err != nil {
		return nil, err
	}
	return summarizePatients(r, n, active), nil
}

// Outstanding ages every bill that is not fully paid against today.
func (s *Service) Outstanding(ctx context.Context) (*OutstandingAging, error) {
	bills, err := s.store.OutstandingBills(ctx)
	if err != nil {
		return nil, err
	}
	return summarizeAging(s.today(), bills, topOutstanding), nil
}

// Performance compares this month so far with the whole previous month.
func (s *Service) Performance(ctx context.Context) (*Performance, error) {
	today := s.today()
	curFrom := today.FirstOfMonth()
	prevTo := curFrom.AddDays(-1)

	cur, err := s.store.Period(ctx, Range{From: curFrom, To: today})
	if err != nil {
		return nil, err
	}
	prev, err := s.store.Period(ctx, Range{From: prevTo.FirstOfMonth(), To: prevTo})
	if err != nil {
		return nil, err
	}
	return comparePeriods(cur, prev), nil
}

// DailyTrend returns one row per day with bills over the last days days,
// today included.
func (s *Service) DailyTrend(ctx context.Context, days int) ([]DailyRevenue, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	today := s.today()
	rows, err := s.store.DailyRevenue(ctx, Range{From: today.AddDays(-(days - 1)), To: today})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []DailyRevenue{}
	}
	return rows, nil
}

// MonthlyComparison returns the last months calendar months, oldest first,
// the current month included.
func (s *Service) MonthlyComparison(ctx context.Context, months int) ([]MonthlyMetrics, error) {
	if months <= 0 {
		months = DefaultCompareMonth
	}
	first := s.today().FirstOfMonth()
	out := make([]MonthlyMetrics, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := labmodels.Date{Time: first.AddDate(0, -i, 0)}
		m, err := s.store.Period(ctx, Range{From: start, To: start.LastOfMonth()})
		if err != nil {
			return nil, err
		}
		out = append(out, MonthlyMetrics{Month: start.Format("2006-01"), PeriodMetrics: m})
	}
	return out, nil
}

// Overview bundles the dashboard figures for r.
func (s *Service) Overview(ctx context.Context, r Range) (*Overview, error) {
	var (
		o   Overview
		err error
	)
	if o.Revenue, err = s.Revenue(ctx, r); err != nil {
		return nil, err
	}
	if o.Tests, err = s.Tests(ctx, r, DefaultTopTests); err != nil {
		return nil, err
	}
	if o.Patients, err = s.Patients(ctx, r); err != nil {
		return nil, err
	}
	if o.Outstanding, err = s.Outstanding(ctx); err != nil {
		return nil, err
	}
	if o.Performance, err = s.Performance(ctx); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("from", r.From.String()).Str("to", r.To.String()).Msg("overview computed")
	return &o, nil
}
