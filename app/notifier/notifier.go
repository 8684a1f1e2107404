package notifier

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/factory"
)

// PaymentConfirmation describes a payment that was just applied to its resource.
type PaymentConfirmation struct {
	TransactionID string
	Reference     string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	CustomerName  string
	CustomerEmail string
	PaidAt        time.Time
}

type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error
}

// LogNotifier only writes the confirmation to the log.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: factory.NewModuleLogger("payments-notifier")}
}

func (n *LogNotifier) NotifyPaymentConfirmed(_ context.Context, confirmation PaymentConfirmation) error {
	n.logger.WithFields(logrus.Fields{
		"transaction_id": confirmation.TransactionID,
		"reference":      confirmation.Reference,
		"user_id":        confirmation.UserID,
		"amount":         confirmation.Amount.String(),
		"currency":       confirmation.Currency,
		"customer_email": confirmation.CustomerEmail,
	}).Info("payment_confirmed")
	return nil
}
