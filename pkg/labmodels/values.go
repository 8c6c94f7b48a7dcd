package labmodels

// Common value set constants used across the application.

// Gender values accepted at patient registration.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// ValidGender reports whether g is an accepted gender value. Empty is allowed
// because gender is optional.
func ValidGender(g string) bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Report status values. A report moves pending -> completed -> reviewed.
const (
	ReportPending   = "pending"
	ReportCompleted = "completed"
	ReportReviewed  = "reviewed"
)

// Payment status values, derived from paid versus total.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	return s == PaymentUnpaid || s == PaymentPartial || s == PaymentPaid
}

// ValidReportStatus reports whether s is a known report status.
func ValidReportStatus(s string) bool {
	return s == ReportPending || s == ReportCompleted || s == ReportReviewed
}
