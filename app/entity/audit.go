package entity

import (
	"fmt"
	"time"
)

const (
	AuditStatusSuccess  = "success"
	AuditStatusNoop     = "noop"
	AuditStatusRejected = "rejected"
	AuditStatusError    = "error"

	AuditSourceWebhook = "webhook"
	AuditSourceRepair  = "repair"
)

type PaymentAuditRecord struct {
	Key           string
	TransactionID string
	Reference     string
	Status        string
	Reason        string
	Amount        int64
	Mode          string
	Source        string
	Payload       string
	CreatedAt     time.Time
}

// AuditKey builds the append-only key: timestamp first, so keys sort by time.
func AuditKey(at time.Time, transactionID string) string {
	if transactionID == "" {
		transactionID = "unknown"
	}
	return fmt.Sprintf("%s_%s", at.UTC().Format(time.RFC3339Nano), transactionID)
}
