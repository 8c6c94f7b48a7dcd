package billing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/db"
	"github.com/labdesk/labdesk/internal/platform/events"
	"github.com/labdesk/labdesk/internal/platform/money"
	"github.com/labdesk/labdesk/pkg/labmodels"
)

type Service struct {
	repo         Repository
	tx           db.TxRunner
	pub          events.Publisher
	logger       zerolog.Logger
	onePerReport bool
}

func NewService(repo Repository, tx db.TxRunner, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		repo:         repo,
		tx:           tx,
		pub:          pub,
		logger:       logger.With().Str("component", "billing").Logger(),
		onePerReport: true,
	}
}

// SetOnePerReport controls whether a report may be billed more than once.
func (s *Service) SetOnePerReport(on bool) {
	s.onePerReport = on
}

// CreateManualBill records a bill that is not tied to a report. When line
// items are given and total_amount is zero, the total is derived from them as
// items - discount + tax.
func (s *Service) CreateManualBill(ctx context.Context, req ManualBillRequest) (*Bill, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if req.BillDate.IsZero() {
		return nil, apperr.Validation("bill_date is required")
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"total_amount", req.TotalAmount},
		{"paid_amount", req.PaidAmount},
		{"discount", req.Discount},
		{"tax_amount", req.TaxAmount},
	} {
		if f.v.IsNegative() {
			return nil, apperr.Validation("%s must not be negative", f.name)
		}
	}
	for i, it := range req.Items {
		if it.TestTypeID == uuid.Nil {
			return nil, apperr.Validation("items[%d]: test_type_id is required", i)
		}
		if it.Quantity < 0 {
			return nil, apperr.Validation("items[%d]: quantity must be positive", i)
		}
		if it.UnitPrice != nil && it.UnitPrice.IsNegative() {
			return nil, apperr.Validation("items[%d]: unit_price must not be negative", i)
		}
	}

	b := &Bill{
		PatientID:     req.PatientID,
		BillDate:      req.BillDate,
		TotalAmount:   money.Round2(req.TotalAmount),
		PaidAmount:    money.Round2(req.PaidAmount),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Discount:      money.Round2(req.Discount),
		TaxAmount:     money.Round2(req.TaxAmount),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.PatientExists(ctx, req.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("patient")
		}

		items, err := s.resolveItems(ctx, req.Items)
		if err != nil {
			return err
		}
		if len(items) > 0 && b.TotalAmount.IsZero() {
			lines := make([]decimal.Decimal, 0, len(items))
			for _, it := range items {
				lines = append(lines, it.TotalPrice)
			}
			b.TotalAmount = money.Sum(lines...).Sub(b.Discount).Add(b.TaxAmount)
			if b.TotalAmount.IsNegative() {
				return apperr.Validation("discount exceeds the billed amount")
			}
		}
		b.PaymentStatus = DerivePaymentStatus(b.PaidAmount, b.TotalAmount)

		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		for _, it := range items {
			it.BillID = b.ID
			if err := s.repo.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("bill_id", b.ID.String()).Str("total", money.String(b.TotalAmount)).Msg("manual bill created")
	events.Emit(ctx, s.pub, s.logger, events.New(events.BillCreated, b.ID, b.PatientID, billEventData(b)))
	return b, nil
}

// resolveItems fills in catalog prices and default quantities.
func (s *Service) resolveItems(ctx context.Context, in []ItemInput) ([]*Item, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.TestTypeID)
	}
	prices, err := s.repo.TestTypePrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(in))
	for _, it := range in {
		price, ok := prices[it.TestTypeID]
		if !ok {
			return nil, apperr.NotFoundMessage("test type " + it.TestTypeID.String() + " not found")
		}
		if it.UnitPrice != nil {
			price = money.Round2(*it.UnitPrice)
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, &Item{
			TestTypeID: it.TestTypeID,
			Quantity:   qty,
			UnitPrice:  price,
			TotalPrice: price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return items, nil
}

// CreateBillFromReport bills every test on a report at current catalog
// prices plus GST, and returns the new bill id.
func (s *Service) CreateBillFromReport(ctx context.Context, reportID uuid.UUID) (uuid.UUID, error) {
	var b *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		rp, err := s.repo.LockReport(ctx, reportID)
		if err != nil {
			return err
		}
		if s.onePerReport {
			billed, err := s.repo.ReportBilled(ctx, reportID)
			if err != nil {
				return err
			}
			if billed {
				return apperr.Conflict("report already billed")
			}
		}

		lines, err := s.repo.ReportLines(ctx, reportID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.Validation("no test results")
		}

		prices := make([]decimal.Decimal, 0, len(lines))
		for _, l := range lines {
			prices = append(prices, l.Price)
		}
		subtotal := money.Sum(prices...)
		tax := money.Tax(subtotal)

		b = &Bill{
			PatientID:     rp.PatientID,
			ReportID:      &rp.ID,
			BillDate:      rp.TestDate,
			TotalAmount:   subtotal.Add(tax),
			PaidAmount:    decimal.Zero,
			PaymentStatus: labmodels.PaymentUnpaid,
			Discount:      decimal.Zero,
			TaxAmount:     tax,
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		for _, l := range lines {
			it := &Item{BillID: b.ID, TestTypeID: l.TestTypeID, Quantity: 1, UnitPrice: l.Price, TotalPrice: l.Price}
			if err := s.repo.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info().Str("bill_id", b.ID.String()).Str("report_id", reportID.String()).
		Str("total", money.String(b.TotalAmount)).Msg("bill created from report")
	events.Emit(ctx, s.pub, s.logger, events.New(events.BillCreated, b.ID, b.PatientID, billEventData(b)))
	return b.ID, nil
}

// RecordPayment adds amount to what has been paid. Overpayment is accepted
// and leaves the bill paid.
func (s *Service) RecordPayment(ctx context.Context, billID uuid.UUID, req PaymentRequest) (*Bill, error) {
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive")
	}
	amount := money.Round2(req.Amount)
	method := strings.TrimSpace(req.Method)

	var b *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.Lock(ctx, billID)
		if err != nil {
			return err
		}
		b.PaidAmount = b.PaidAmount.Add(amount)
		b.PaymentStatus = DerivePaymentStatus(b.PaidAmount, b.TotalAmount)
		if method != "" {
			b.PaymentMethod = method
		}
		return s.repo.UpdatePayment(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("bill_id", billID.String()).Str("amount", money.String(amount)).
		Str("status", b.PaymentStatus).Msg("payment recorded")
	events.Emit(ctx, s.pub, s.logger, events.New(events.PaymentRecorded, b.ID, b.PatientID, map[string]string{
		"amount":         money.String(amount),
		"paid_amount":    money.String(b.PaidAmount),
		"payment_status": b.PaymentStatus,
	}))
	return b, nil
}

func (s *Service) GetBillView(ctx context.Context, billID uuid.UUID) (*View, error) {
	return s.repo.GetView(ctx, billID)
}

func (s *Service) ListBills(ctx context.Context, f Filter) ([]*Bill, int, error) {
	if f.Status != "" && !labmodels.ValidPaymentStatus(f.Status) {
		return nil, 0, apperr.Validation("invalid payment_status %q", f.Status)
	}
	if f.From != nil && f.To != nil && f.From.After(f.To.Time) {
		return nil, 0, apperr.Validation("from must not be after to")
	}
	return s.repo.List(ctx, f)
}

func billEventData(b *Bill) map[string]string {
	data := map[string]string{
		"total_amount":   money.String(b.TotalAmount),
		"payment_status": b.PaymentStatus,
	}
	if b.ReportID != nil {
		data["report_id"] = b.ReportID.String()
	}
	return data
}
