package billing

import (
	"github.com/shopspring/decimal"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

// DerivePaymentStatus is the only place payment status is decided:
// nothing paid is unpaid, anything short of total is partial, and total or
// more is paid.
func DerivePaymentStatus(paid, total decimal.Decimal) string {
	switch {
	case !paid.IsPositive():
		return labmodels.PaymentUnpaid
	case paid.LessThan(total):
		return labmodels.PaymentPartial
	default:
		return labmodels.PaymentPaid
	}
}
