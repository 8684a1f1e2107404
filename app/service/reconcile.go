package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/notifier"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
)

const maxAuditPayloadBytes = 16 * 1024

type Disposition string

const (
	DispositionApplied         Disposition = "applied"
	DispositionIdempotencyNoop Disposition = "idempotency_noop"
	DispositionIgnored         Disposition = "ignored"
)

type ReconciliationOutcome struct {
	Disposition   Disposition
	TransactionID string
	Reference     string
	Status        entity.CallbackStatus
	Warnings      []string
}

// HandleCallback verifies, validates and reconciles a raw webhook body.
func (s *PaymentService) HandleCallback(ctx context.Context, raw []byte, signature string) (*ReconciliationOutcome, error) {
	if err := s.validator.Verify(raw, signature); err != nil {
		s.auditRejected(ctx, raw, entity.AuditSourceWebhook, err)
		return nil, err
	}

	payload, err := s.validator.Validate(raw)
	if err != nil {
		s.auditRejected(ctx, raw, entity.AuditSourceWebhook, err)
		return nil, err
	}

	return s.apply(ctx, payload, entity.AuditSourceWebhook)
}

// Apply reconciles a validated callback with the referenced resource. Only
// approved transactions change the resource, and only once per transaction.
func (s *PaymentService) Apply(ctx context.Context, payload *entity.CallbackPayload) (*ReconciliationOutcome, error) {
	return s.apply(ctx, payload, entity.AuditSourceWebhook)
}

// RepairTransaction pulls a transaction from the processor and feeds it
// through the same reconciliation path as a webhook.
func (s *PaymentService) RepairTransaction(ctx context.Context, transactionID string) (*ReconciliationOutcome, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, ErrInvalidRequest
	}

	transaction, err := s.fetchTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	raw, _ := json.Marshal(map[string]interface{}{"transaction": transaction})
	payload, err := webhook.ValidateTransaction(transaction)
	if err != nil {
		s.auditRejected(ctx, raw, entity.AuditSourceRepair, err)
		return nil, err
	}
	payload.Raw = raw

	return s.apply(ctx, payload, entity.AuditSourceRepair)
}

func (s *PaymentService) apply(ctx context.Context, payload *entity.CallbackPayload, source string) (*ReconciliationOutcome, error) {
	if payload == nil {
		return nil, ErrInvalidRequest
	}

	outcome := &ReconciliationOutcome{
		TransactionID: payload.TransactionID,
		Reference:     payload.Reference,
		Status:        payload.Status,
		Warnings:      payload.Warnings,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"transaction_id": payload.TransactionID,
		"reference":      payload.Reference,
		"status":         string(payload.Status),
		"source":         source,
	})
	if payload.HasWarning(entity.WarningReferenceMismatch) {
		logger.WithField("metadata_article_id", payload.Metadata[entity.MetadataArticleID]).Warn("Callback reference differs from metadata articleId")
	}

	if payload.Status != entity.CallbackStatusApproved {
		s.audit(ctx, payload, source, string(payload.Status), payload.RawStatus)
		outcome.Disposition = DispositionIgnored
		logger.Info("Callback recorded without changes")
		return outcome, nil
	}

	now := time.Now().UTC()
	paymentDate := now
	if payload.ProcessedAt != nil {
		paymentDate = payload.ProcessedAt.UTC()
	}
	method := payload.Mode
	if method == "" {
		method = entity.DefaultPaymentMethod
	}
	app := &entity.PaymentApplication{
		Reference:     payload.Reference,
		PaymentID:     payload.TransactionID,
		PaymentDate:   paymentDate,
		PaymentAmount: entity.MinorToMajor(payload.Amount),
		PaymentMethod: method,
		PaidBy:        payload.UserID(),
		AppliedAt:     now,
	}

	storeCtx := ctx
	if s.paymentsCfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, s.paymentsCfg.StoreTimeout)
		defer cancel()
	}

	result, err := s.resourceRepo.ApplyPayment(storeCtx, app)
	switch {
	case errors.Is(err, repository.ErrResourceNotFound):
		s.audit(ctx, payload, source, entity.AuditStatusRejected, "resource_not_found")
		logger.Warn("Approved callback for unknown resource")
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, payload.Reference)
	case err != nil:
		s.audit(ctx, payload, source, entity.AuditStatusError, err.Error())
		logger.WithError(err).Error("Failed to apply payment")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	case result == repository.ApplyResultUnchanged:
		s.audit(ctx, payload, source, entity.AuditStatusNoop, "already_applied")
		outcome.Disposition = DispositionIdempotencyNoop
		logger.Info("Payment already applied")
		return outcome, nil
	}

	s.audit(ctx, payload, source, entity.AuditStatusSuccess, "")
	outcome.Disposition = DispositionApplied
	logger.WithField("amount", app.PaymentAmount.String()).Info("Payment applied")

	s.notifyAsync(payload, app)

	return outcome, nil
}

func (s *PaymentService) notifyAsync(payload *entity.CallbackPayload, app *entity.PaymentApplication) {
	confirmation := notifier.PaymentConfirmation{
		TransactionID: app.PaymentID,
		Reference:     app.Reference,
		UserID:        app.PaidBy,
		Amount:        app.PaymentAmount,
		Currency:      s.paymentsCfg.Currency,
		PaymentMethod: app.PaymentMethod,
		PaidAt:        app.PaymentDate,
	}
	if payload.Customer != nil {
		confirmation.CustomerName = payload.Customer.FullName()
		confirmation.CustomerEmail = payload.Customer.Email
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", r).WithField("transaction_id", confirmation.TransactionID).Error("Payment notifier panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.paymentsCfg.NotifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyPaymentConfirmed(ctx, confirmation); err != nil {
			s.logger.WithError(err).WithField("transaction_id", confirmation.TransactionID).Warn("Payment confirmation notification failed")
		}
	}()
}

func (s *PaymentService) audit(ctx context.Context, payload *entity.CallbackPayload, source, status, reason string) {
	now := time.Now().UTC()
	record := &entity.PaymentAuditRecord{
		Key:           entity.AuditKey(now, payload.TransactionID),
		TransactionID: payload.TransactionID,
		Reference:     payload.Reference,
		Status:        status,
		Reason:        truncate(strings.TrimSpace(reason), 1024),
		Amount:        payload.Amount,
		Mode:          payload.Mode,
		Source:        source,
		Payload:       truncate(string(payload.Raw), maxAuditPayloadBytes),
		CreatedAt:     now,
	}
	s.appendAudit(ctx, record)
}

func (s *PaymentService) auditRejected(ctx context.Context, raw []byte, source string, cause error) {
	payload := &entity.CallbackPayload{Raw: raw}
	s.audit(ctx, payload, source, entity.AuditStatusRejected, cause.Error())
	s.logger.WithError(cause).WithField("source", source).Warn("Callback rejected")
}

func (s *PaymentService) appendAudit(ctx context.Context, record *entity.PaymentAuditRecord) {
	if err := s.auditRepo.Append(context.WithoutCancel(ctx), record); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_id": record.TransactionID,
			"audit_status":   record.Status,
		}).Warn("Failed to append payment audit record")
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
