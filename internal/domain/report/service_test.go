package report

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/db"
	"github.com/labdesk/labdesk/internal/platform/events"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

type mockTestType struct {
	name  string
	code  string
	price decimal.Decimal
}

type mockReportRepo struct {
	patients  map[uuid.UUID]bool
	testTypes map[uuid.UUID]mockTestType
	reports   map[uuid.UUID]*Report
	results   map[uuid.UUID][]*Result
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{
		patients:  make(map[uuid.UUID]bool),
		testTypes: make(map[uuid.UUID]mockTestType),
		reports:   make(map[uuid.UUID]*Report),
		results:   make(map[uuid.UUID][]*Result),
	}
}

func (m *mockReportRepo) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.patients[id], nil
}

func (m *mockReportRepo) MissingTestTypes(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := m.testTypes[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *mockReportRepo) Create(_ context.Context, r *Report) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.reports[r.ID] = r
	return nil
}

func (m *mockReportRepo) CreatePlaceholder(_ context.Context, reportID, testTypeID uuid.UUID) error {
	for _, res := range m.results[reportID] {
		if res.TestTypeID == testTypeID {
			return apperr.Conflict("test already ordered on this report")
		}
	}
	m.results[reportID] = append(m.results[reportID], &Result{
		ID: uuid.New(), ReportID: reportID, TestTypeID: testTypeID, Flag: FlagPending,
	})
	return nil
}

func (m *mockReportRepo) Lock(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperr.NotFound("report")
	}
	cp := *r
	return &cp, nil
}

func (m *mockReportRepo) UpdateResult(_ context.Context, reportID uuid.UUID, in ResultInput) (int64, error) {
	for _, res := range m.results[reportID] {
		if res.TestTypeID == in.TestTypeID {
			res.ResultValue = in.ResultValue
			res.Flag = in.Flag
			res.Remarks = in.Remarks
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockReportRepo) CountEmptyResults(_ context.Context, reportID uuid.UUID) (int, error) {
	n := 0
	for _, res := range m.results[reportID] {
		if res.ResultValue == "" {
			n++
		}
	}
	return n, nil
}

func (m *mockReportRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	r, ok := m.reports[id]
	if !ok {
		return apperr.NotFound("report")
	}
	r.Status = status
	return nil
}

func (m *mockReportRepo) GetView(_ context.Context, id uuid.UUID) (*View, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperr.NotFound("report")
	}
	v := &View{Report: *r, Patient: PatientInfo{ID: r.PatientID, FirstName: "Asha", LastName: "Rao"}}
	for _, res := range m.results[id] {
		tt := m.testTypes[res.TestTypeID]
		v.Results = append(v.Results, ResultView{Result: *res, TestName: tt.name, TestCode: tt.code, Price: tt.price})
	}
	sort.Slice(v.Results, func(i, j int) bool { return v.Results[i].TestName < v.Results[j].TestName })
	return v, nil
}

func (m *mockReportRepo) List(_ context.Context, f Filter) ([]*Report, int, error) {
	var items []*Report
	for _, r := range m.reports {
		if f.PatientID != nil && r.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		items = append(items, r)
	}
	return items, len(items), nil
}

type fixture struct {
	svc     *Service
	repo    *mockReportRepo
	pub     *events.Memory
	patient uuid.UUID
	cbc     uuid.UUID
	hgb     uuid.UUID
}

func newFixture() *fixture {
	repo := newMockReportRepo()
	pub := events.NewMemory()
	f := &fixture{
		svc:     NewService(repo, db.NoTx{}, pub, zerolog.Nop()),
		repo:    repo,
		pub:     pub,
		patient: uuid.New(),
		cbc:     uuid.New(),
		hgb:     uuid.New(),
	}
	repo.patients[f.patient] = true
	repo.testTypes[f.cbc] = mockTestType{name: "Complete Blood Count", code: "CBC", price: decimal.NewFromInt(500)}
	repo.testTypes[f.hgb] = mockTestType{name: "Hemoglobin", code: "HGB", price: decimal.NewFromInt(300)}
	return f
}

func testDate(s string) labmodels.Date {
	d, err := labmodels.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) createReport(t *testing.T, ids ...uuid.UUID) *Report {
	t.Helper()
	rp, err := f.svc.CreateReport(context.Background(), CreateRequest{
		PatientID:   f.patient,
		TestDate:    testDate("2024-03-01"),
		TestTypeIDs: ids,
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return rp
}

func TestCreateReport(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.cbc, f.hgb)

	if rp.Status != labmodels.ReportPending {
		t.Errorf("expected pending, got %s", rp.Status)
	}
	results := f.repo.results[rp.ID]
	if len(results) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(results))
	}
	for _, res := range results {
		if res.ResultValue != "" || res.Flag != FlagPending || res.Remarks != "" {
			t.Errorf("placeholder not empty: %+v", res)
		}
	}
	if got := f.pub.Types(); len(got) != 1 || got[0] != events.ReportCreated {
		t.Errorf("expected report.created, got %v", got)
	}
}

func TestCreateReport_DuplicateIDsCollapsed(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.hgb, f.cbc, f.hgb)

	results := f.repo.results[rp.ID]
	if len(results) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(results))
	}
	if results[0].TestTypeID != f.hgb || results[1].TestTypeID != f.cbc {
		t.Error("expected first occurrence order to be kept")
	}
}

func TestCreateReport_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := map[string]CreateRequest{
		"no tests":     {PatientID: f.patient, TestDate: testDate("2024-03-01")},
		"no test date": {PatientID: f.patient, TestTypeIDs: []uuid.UUID{f.cbc}},
		"no patient":   {TestDate: testDate("2024-03-01"), TestTypeIDs: []uuid.UUID{f.cbc}},
	}
	for name, req := range cases {
		if _, err := f.svc.CreateReport(ctx, req); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if len(f.repo.reports) != 0 {
		t.Errorf("expected no reports, got %d", len(f.repo.reports))
	}
}

func TestCreateReport_UnknownPatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateReport(context.Background(), CreateRequest{
		PatientID: uuid.New(), TestDate: testDate("2024-03-01"), TestTypeIDs: []uuid.UUID{f.cbc},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateReport_UnknownTestType(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateReport(context.Background(), CreateRequest{
		PatientID: f.patient, TestDate: testDate("2024-03-01"), TestTypeIDs: []uuid.UUID{f.cbc, uuid.New()},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.repo.reports) != 0 {
		t.Error("expected no report to be created")
	}
}

func TestRecordResults_CompletesWhenAllFilled(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.cbc, f.hgb)
	ctx := context.Background()

	status, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.cbc, ResultValue: "Normal", Flag: FlagNormal},
		{TestTypeID: f.hgb, ResultValue: "10.2", Flag: FlagAbnormal, Remarks: "low"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != labmodels.ReportCompleted {
		t.Errorf("expected completed, got %s", status)
	}
	if f.repo.reports[rp.ID].Status != labmodels.ReportCompleted {
		t.Error("expected stored status to be completed")
	}
	types := f.pub.Types()
	if types[len(types)-1] != events.ReportCompleted {
		t.Errorf("expected report.completed last, got %v", types)
	}
}

func TestRecordResults_PartialBatchStaysPending(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.cbc, f.hgb)
	ctx := context.Background()

	status, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.hgb, ResultValue: "13.5", Flag: FlagNormal},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != labmodels.ReportPending {
		t.Errorf("expected pending after partial batch, got %s", status)
	}

	status, err = f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.cbc, ResultValue: "Normal", Flag: FlagNormal},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != labmodels.ReportCompleted {
		t.Errorf("expected completed after second batch, got %s", status)
	}
}

func TestRecordResults_BlankValueDoesNotComplete(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.hgb)

	status, err := f.svc.RecordResults(context.Background(), rp.ID, []ResultInput{
		{TestTypeID: f.hgb, ResultValue: "   ", Remarks: "sample haemolysed"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != labmodels.ReportPending {
		t.Errorf("expected pending, got %s", status)
	}
}

func TestRecordResults_CompletedRejectsBlankValue(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.cbc, f.hgb)
	ctx := context.Background()

	if _, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.cbc, ResultValue: "Normal", Flag: FlagNormal},
		{TestTypeID: f.hgb, ResultValue: "13.5", Flag: FlagNormal},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.cbc, ResultValue: "Reactive", Flag: FlagAbnormal},
		{TestTypeID: f.hgb, ResultValue: "  "},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.repo.reports[rp.ID].Status != labmodels.ReportCompleted {
		t.Errorf("expected report to stay completed, got %s", f.repo.reports[rp.ID].Status)
	}
	for _, res := range f.repo.results[rp.ID] {
		if res.TestTypeID == f.cbc && res.ResultValue != "Normal" {
			t.Errorf("expected batch to be rejected whole, cbc is %q", res.ResultValue)
		}
		if res.ResultValue == "" {
			t.Error("expected no result to be cleared")
		}
	}

	status, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{
		{TestTypeID: f.hgb, ResultValue: "12.9", Flag: FlagNormal},
	})
	if err != nil {
		t.Fatalf("correction on completed report: %v", err)
	}
	if status != labmodels.ReportCompleted {
		t.Errorf("expected completed, got %s", status)
	}
}

func TestRecordResults_Errors(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.hgb)
	ctx := context.Background()

	if _, err := f.svc.RecordResults(ctx, rp.ID, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("empty batch: expected validation, got %v", err)
	}
	if _, err := f.svc.RecordResults(ctx, uuid.New(), []ResultInput{{TestTypeID: f.hgb, ResultValue: "1"}}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing report: expected not found, got %v", err)
	}
	if _, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{{TestTypeID: f.cbc, ResultValue: "1"}}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("test not on report: expected validation, got %v", err)
	}
}

func TestReviewReport(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.hgb)
	ctx := context.Background()

	if err := f.svc.ReviewReport(ctx, rp.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("pending report: expected validation, got %v", err)
	}

	if _, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{{TestTypeID: f.hgb, ResultValue: "13.5", Flag: FlagNormal}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := f.svc.ReviewReport(ctx, rp.ID); err != nil {
		t.Fatalf("review: %v", err)
	}
	if f.repo.reports[rp.ID].Status != labmodels.ReportReviewed {
		t.Errorf("expected reviewed, got %s", f.repo.reports[rp.ID].Status)
	}

	if err := f.svc.ReviewReport(ctx, rp.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("second review: expected validation, got %v", err)
	}
	_, err := f.svc.RecordResults(ctx, rp.ID, []ResultInput{{TestTypeID: f.hgb, ResultValue: "14.0"}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("results on reviewed report: expected validation, got %v", err)
	}
}

func TestGetReportView(t *testing.T) {
	f := newFixture()
	rp := f.createReport(t, f.hgb, f.cbc)

	v, err := f.svc.GetReportView(context.Background(), rp.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Results) != 2 || v.Results[0].TestCode != "CBC" {
		t.Errorf("expected results ordered by test name, got %+v", v.Results)
	}

	if _, err := f.svc.GetReportView(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListReports_InvalidFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, _, err := f.svc.ListReports(ctx, Filter{Status: "done"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation for bad status, got %v", err)
	}
	from, to := testDate("2024-03-10"), testDate("2024-03-01")
	if _, _, err := f.svc.ListReports(ctx, Filter{From: &from, To: &to}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation for inverted range, got %v", err)
	}
}

func TestListReports_FiltersByStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	done := f.createReport(t, f.hgb)
	f.createReport(t, f.cbc)
	if _, err := f.svc.RecordResults(ctx, done.ID, []ResultInput{{TestTypeID: f.hgb, ResultValue: "13"}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	items, total, err := f.svc.ListReports(ctx, Filter{Status: labmodels.ReportCompleted, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].ID != done.ID {
		t.Errorf("expected only the completed report, got %d", total)
	}
}
