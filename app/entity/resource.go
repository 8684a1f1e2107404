package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusUnpaid       = "unpaid"
	PaymentStatusPaid         = "paid"
	PaymentStatusUnknownError = "unknown-error"

	DefaultPaymentMethod = "fedapay"
)

type PayableResource struct {
	Reference     string
	PaymentStatus string
	PaymentID     *string
	PaymentDate   *time.Time
	PaymentAmount *decimal.Decimal
	PaymentMethod *string
	PaidBy        *string
	UpdatedAt     time.Time
}

// PaymentApplication is the set of fields written when an approved
// transaction is applied to a resource.
type PaymentApplication struct {
	Reference     string
	PaymentID     string
	PaymentDate   time.Time
	PaymentAmount decimal.Decimal
	PaymentMethod string
	PaidBy        string
	AppliedAt     time.Time
}

// MinorToMajor converts an amount expressed in minor units into major units.
func MinorToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

type TransactionStatus struct {
	TransactionID string
	Status        CallbackStatus
	RawStatus     string
	Amount        int64
	Mode          string
	Reference     string
}
