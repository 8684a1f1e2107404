package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, record *entity.PaymentAuditRecord) error {
	query := `
		INSERT INTO payment_audit (
			audit_key, transaction_id, reference, status, reason, amount, mode, source, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.Key,
		record.TransactionID,
		nullableStringValue(record.Reference),
		record.Status,
		nullableStringValue(record.Reason),
		record.Amount,
		nullableStringValue(record.Mode),
		record.Source,
		nullableStringValue(record.Payload),
		record.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrAuditKeyExists
		}
		return err
	}
	return nil
}
