package billing

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/db"
	"github.com/labdesk/labdesk/internal/platform/events"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

func newPgService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewService(NewRepoPG(mock), db.NewTxRunner(mock), events.Noop{}, zerolog.Nop()), mock
}

var billColumns = []string{"id", "patient_id", "report_id", "bill_date", "total_amount", "paid_amount",
	"payment_status", "payment_method", "discount", "tax_amount", "created_at", "updated_at"}

func TestRecordPayment_PG_LocksAndCommits(t *testing.T) {
	svc, mock := newPgService(t)
	billID, patientID := uuid.New(), uuid.New()
	billDate, _ := labmodels.ParseDate("2024-03-01")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bills WHERE id = $1 FOR UPDATE")).WithArgs(billID).
		WillReturnRows(pgxmock.NewRows(billColumns).AddRow(
			billID, patientID, nil, billDate, dec("944.00"), dec("500.00"),
			labmodels.PaymentPartial, "cash", dec("0"), dec("144.00"), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bills SET paid_amount = $1, payment_status = $2, payment_method = $3")).
		WithArgs(pgxmock.AnyArg(), labmodels.PaymentPaid, "upi", billID).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	b, err := svc.RecordPayment(context.Background(), billID, PaymentRequest{Amount: dec("444"), Method: "upi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.PaidAmount.Equal(dec("944")) || b.PaymentStatus != labmodels.PaymentPaid {
		t.Errorf("expected paid 944, got %s %s", b.PaymentStatus, b.PaidAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateBillFromReport_PG_AlreadyBilledRollsBack(t *testing.T) {
	svc, mock := newPgService(t)
	reportID := uuid.New()
	testDate, _ := labmodels.ParseDate("2024-03-01")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, patient_id, test_date FROM blood_reports WHERE id = $1 FOR UPDATE")).
		WithArgs(reportID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "test_date"}).AddRow(reportID, uuid.New(), testDate))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM bills WHERE report_id = $1)")).
		WithArgs(reportID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.CreateBillFromReport(context.Background(), reportID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFilterClause(t *testing.T) {
	to, _ := labmodels.ParseDate("2024-03-31")
	where, args := filterClause(Filter{Status: labmodels.PaymentPartial, To: &to})
	if want := " WHERE payment_status = $1 AND bill_date <= $2"; where != want {
		t.Errorf("expected %q, got %q", want, where)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %d", len(args))
	}
}
