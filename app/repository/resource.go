package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

type ResourceRepository struct {
	db DBTX
}

func NewResourceRepository(db DBTX) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ApplyPayment marks the resource paid in one conditional UPDATE. The row is
// only touched when it does not already carry this payment id and its
// recorded payment date is not newer than the incoming one.
func (r *ResourceRepository) ApplyPayment(ctx context.Context, app *entity.PaymentApplication) (ApplyResult, error) {
	query := `
		UPDATE payable_resources SET
			payment_status = ?,
			payment_id = ?,
			payment_date = ?,
			payment_amount = ?,
			payment_method = ?,
			paid_by = ?,
			updated_at = ?
		WHERE reference = ?
			AND (payment_id IS NULL OR payment_id <> ?)
			AND (payment_date IS NULL OR payment_date <= ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.PaymentStatusPaid,
		app.PaymentID,
		app.PaymentDate,
		app.PaymentAmount,
		app.PaymentMethod,
		nullableStringValue(app.PaidBy),
		app.AppliedAt,
		app.Reference,
		app.PaymentID,
		app.PaymentDate,
	)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		return ApplyResultApplied, nil
	}

	exists, err := r.exists(ctx, app.Reference)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrResourceNotFound
	}
	return ApplyResultUnchanged, nil
}

func (r *ResourceRepository) FindByReference(ctx context.Context, reference string) (*entity.PayableResource, error) {
	query := `
		SELECT reference, payment_status, payment_id, payment_date, payment_amount, payment_method, paid_by, updated_at
		FROM payable_resources
		WHERE reference = ?
	`

	var (
		resource      entity.PayableResource
		paymentID     sql.NullString
		paymentDate   sql.NullTime
		paymentAmount decimal.NullDecimal
		paymentMethod sql.NullString
		paidBy        sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&resource.Reference,
		&resource.PaymentStatus,
		&paymentID,
		&paymentDate,
		&paymentAmount,
		&paymentMethod,
		&paidBy,
		&resource.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	resource.PaymentID = stringPtrFromNull(paymentID)
	resource.PaymentDate = timePtrFromNull(paymentDate)
	if paymentAmount.Valid {
		amount := paymentAmount.Decimal
		resource.PaymentAmount = &amount
	}
	resource.PaymentMethod = stringPtrFromNull(paymentMethod)
	resource.PaidBy = stringPtrFromNull(paidBy)

	return &resource, nil
}

func (r *ResourceRepository) exists(ctx context.Context, reference string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM payable_resources WHERE reference = ?`, reference).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
