package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository/memory"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
	"github.com/vibast-solutions/ms-go-fedapay-payments/config"
)

func approvedBody(transactionID, reference string) []byte {
	return []byte(fmt.Sprintf(`{"name":"transaction.approved","entity":{"id":%q,"reference":%q,"status":"approved","amount":5000,"mode":"mtn_open","approved_at":"2026-03-01T10:00:00Z","metadata":{"userId":"user-7","articleId":%q},"customer":{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com"}}}`, transactionID, reference, reference))
}

func TestHandleCallbackAppliesApprovedPaymentOnce(t *testing.T) {
	env := newTestEnv(t, "art-42")
	ctx := context.Background()

	outcome, err := env.service.HandleCallback(ctx, approvedBody("T1", "art-42"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionApplied {
		t.Fatalf("expected applied, got %s", outcome.Disposition)
	}

	resource, err := env.service.GetResource(ctx, "art-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resource.PaymentStatus != entity.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", resource.PaymentStatus)
	}
	if resource.PaymentID == nil || *resource.PaymentID != "T1" {
		t.Fatalf("unexpected payment id: %v", resource.PaymentID)
	}
	if resource.PaymentAmount == nil || resource.PaymentAmount.String() != "50" {
		t.Fatalf("expected amount 50, got %v", resource.PaymentAmount)
	}
	if resource.PaymentMethod == nil || *resource.PaymentMethod != "mtn_open" {
		t.Fatalf("unexpected payment method: %v", resource.PaymentMethod)
	}
	if resource.PaidBy == nil || *resource.PaidBy != "user-7" {
		t.Fatalf("unexpected paid by: %v", resource.PaidBy)
	}
	wantDate := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if resource.PaymentDate == nil || !resource.PaymentDate.Equal(wantDate) {
		t.Fatalf("unexpected payment date: %v", resource.PaymentDate)
	}

	outcome, err = env.service.HandleCallback(ctx, approvedBody("T1", "art-42"), "")
	if err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if outcome.Disposition != DispositionIdempotencyNoop {
		t.Fatalf("expected idempotency noop, got %s", outcome.Disposition)
	}

	env.service.Wait()
	calls := env.notifier.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(calls))
	}
	if calls[0].Reference != "art-42" || calls[0].CustomerName != "Ada Lovelace" || calls[0].Currency != "XOF" {
		t.Fatalf("unexpected confirmation: %+v", calls[0])
	}

	statuses := env.auditStatuses()
	if len(statuses) != 2 || statuses[0] != entity.AuditStatusSuccess || statuses[1] != entity.AuditStatusNoop {
		t.Fatalf("unexpected audit trail: %v", statuses)
	}
}

func TestHandleCallbackDeclinedLeavesResourceUnchanged(t *testing.T) {
	env := newTestEnv(t, "art-43")
	body := []byte(`{"entity":{"id":"T9","reference":"art-43","status":"declined","amount":5000}}`)

	outcome, err := env.service.HandleCallback(context.Background(), body, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionIgnored || outcome.Status != entity.CallbackStatusDeclined {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	resource, _ := env.service.GetResource(context.Background(), "art-43")
	if resource.PaymentStatus != entity.PaymentStatusUnpaid || resource.PaymentID != nil {
		t.Fatalf("expected resource untouched, got %+v", resource)
	}

	records := env.audit.Records()
	if len(records) != 1 || records[0].Status != "declined" || records[0].TransactionID != "T9" {
		t.Fatalf("unexpected audit records: %+v", records)
	}
	env.service.Wait()
	if len(env.notifier.Calls()) != 0 {
		t.Fatalf("expected no notification for declined transaction")
	}
}

func TestHandleCallbackFallsBackToMetadataReference(t *testing.T) {
	env := newTestEnv(t, "art-44")
	body := []byte(`{"entity":{"id":"T2","status":"approved","amount":1500,"metadata":{"articleId":"art-44","userId":"u-1"}}}`)

	outcome, err := env.service.HandleCallback(context.Background(), body, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionApplied || outcome.Reference != "art-44" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	resource, _ := env.service.GetResource(context.Background(), "art-44")
	if resource.PaymentMethod == nil || *resource.PaymentMethod != entity.DefaultPaymentMethod {
		t.Fatalf("expected default payment method, got %v", resource.PaymentMethod)
	}
	if resource.PaymentAmount.String() != "15" {
		t.Fatalf("expected amount 15, got %s", resource.PaymentAmount.String())
	}
}

func TestHandleCallbackRejectsMissingReference(t *testing.T) {
	resources := &failingResourceRepo{err: errors.New("must not be called")}
	audit := memory.NewAuditStore()
	svc := NewPaymentService(resources, audit, &fakeProcessor{}, nil, &recordingNotifier{}, config.PaymentsConfig{})

	_, err := svc.HandleCallback(context.Background(), []byte(`{"entity":{"id":"T3","status":"approved","amount":100}}`), "")
	if !webhook.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, webhook.ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}
	if resources.applyCalls != 0 {
		t.Fatalf("expected store not to be touched")
	}

	records := audit.Records()
	if len(records) != 1 || records[0].Status != entity.AuditStatusRejected || records[0].Source != entity.AuditSourceWebhook {
		t.Fatalf("unexpected audit records: %+v", records)
	}
}

func TestHandleCallbackRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t, "art-1")

	_, err := env.service.HandleCallback(context.Background(), []byte(`not json`), "")
	if !errors.Is(err, webhook.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if statuses := env.auditStatuses(); len(statuses) != 1 || statuses[0] != entity.AuditStatusRejected {
		t.Fatalf("unexpected audit trail: %v", statuses)
	}
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	resources := memory.NewResourceStore()
	resources.Put(&entity.PayableResource{Reference: "art-42"})
	audit := memory.NewAuditStore()
	validator := webhook.NewValidator(stubVerifier{err: provider.ErrInvalidSignature})
	svc := NewPaymentService(resources, audit, &fakeProcessor{}, validator, &recordingNotifier{}, config.PaymentsConfig{})

	_, err := svc.HandleCallback(context.Background(), approvedBody("T1", "art-42"), "t=1,s=bad")
	if !errors.Is(err, webhook.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	resource, _ := resources.FindByReference(context.Background(), "art-42")
	if resource.PaymentStatus != entity.PaymentStatusUnpaid {
		t.Fatalf("expected resource untouched, got %s", resource.PaymentStatus)
	}
}

func TestHandleCallbackPersistenceFailure(t *testing.T) {
	resources := &failingResourceRepo{err: errors.New("connection reset")}
	audit := memory.NewAuditStore()
	paymentNotifier := &recordingNotifier{}
	svc := NewPaymentService(resources, audit, &fakeProcessor{}, nil, paymentNotifier, config.PaymentsConfig{})

	_, err := svc.HandleCallback(context.Background(), approvedBody("T1", "art-42"), "")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	records := audit.Records()
	if len(records) != 1 || records[0].Status != entity.AuditStatusError || records[0].Reason != "connection reset" {
		t.Fatalf("unexpected audit records: %+v", records)
	}
	svc.Wait()
	if len(paymentNotifier.Calls()) != 0 {
		t.Fatalf("expected no notification after persistence failure")
	}
}

func TestHandleCallbackUnknownResource(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.HandleCallback(context.Background(), approvedBody("T1", "art-404"), "")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}

	records := env.audit.Records()
	if len(records) != 1 || records[0].Status != entity.AuditStatusRejected || records[0].Reason != "resource_not_found" {
		t.Fatalf("unexpected audit records: %+v", records)
	}
}

func TestHandleCallbackAuditFailureDoesNotBlockApply(t *testing.T) {
	resources := memory.NewResourceStore()
	resources.Put(&entity.PayableResource{Reference: "art-42"})
	svc := NewPaymentService(resources, failingAuditRepo{}, &fakeProcessor{}, nil, &recordingNotifier{}, config.PaymentsConfig{})

	outcome, err := svc.HandleCallback(context.Background(), approvedBody("T1", "art-42"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionApplied {
		t.Fatalf("expected applied, got %s", outcome.Disposition)
	}
	svc.Wait()
}

func TestNotifierFailureDoesNotAffectOutcome(t *testing.T) {
	env := newTestEnv(t, "art-42")
	env.notifier.err = errors.New("smtp unavailable")

	outcome, err := env.service.HandleCallback(context.Background(), approvedBody("T1", "art-42"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionApplied {
		t.Fatalf("expected applied, got %s", outcome.Disposition)
	}

	env.service.Wait()
	resource, _ := env.service.GetResource(context.Background(), "art-42")
	if resource.PaymentStatus != entity.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", resource.PaymentStatus)
	}
}

func TestHandleCallbackDoesNotWaitForNotifier(t *testing.T) {
	env := newTestEnv(t, "art-42")
	env.notifier.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := env.service.HandleCallback(context.Background(), approvedBody("T1", "art-42"), ""); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback handling waited for notifier")
	}
	close(env.notifier.block)
	env.service.Wait()

	if len(env.notifier.Calls()) != 1 {
		t.Fatalf("expected notifier to finish after release")
	}
}

func TestHandleCallbackConcurrentDeliveriesApplyOnce(t *testing.T) {
	env := newTestEnv(t, "art-42")
	body := approvedBody("T1", "art-42")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[Disposition]int{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := env.service.HandleCallback(context.Background(), body, "")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			counts[outcome.Disposition]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	env.service.Wait()

	if counts[DispositionApplied] != 1 || counts[DispositionIdempotencyNoop] != workers-1 {
		t.Fatalf("unexpected dispositions: %v", counts)
	}
	if len(env.notifier.Calls()) != 1 {
		t.Fatalf("expected one notification, got %d", len(env.notifier.Calls()))
	}
}

func TestApplyIgnoresOlderPaymentAfterNewerOne(t *testing.T) {
	env := newTestEnv(t, "art-42")
	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	first := &entity.CallbackPayload{TransactionID: "T2", Status: entity.CallbackStatusApproved, Amount: 5000, Reference: "art-42", ProcessedAt: &newer}
	if outcome, err := env.service.Apply(context.Background(), first); err != nil || outcome.Disposition != DispositionApplied {
		t.Fatalf("expected applied, got %+v err=%v", outcome, err)
	}

	second := &entity.CallbackPayload{TransactionID: "T1", Status: entity.CallbackStatusApproved, Amount: 5000, Reference: "art-42", ProcessedAt: &older}
	outcome, err := env.service.Apply(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionIdempotencyNoop {
		t.Fatalf("expected older payment to be a noop, got %s", outcome.Disposition)
	}

	resource, _ := env.service.GetResource(context.Background(), "art-42")
	if *resource.PaymentID != "T2" {
		t.Fatalf("expected newer payment to stay, got %s", *resource.PaymentID)
	}
}

func TestRepairTransactionAppliesApprovedTransaction(t *testing.T) {
	env := newTestEnv(t, "art-42")
	env.processor.transactions["T1"] = &provider.Transaction{
		ID:         "T1",
		Reference:  "art-42",
		Status:     "approved",
		Amount:     5000,
		Mode:       "moov",
		ApprovedAt: "2026-03-01 10:00:00",
		Metadata:   []byte(`{"userId":"user-7"}`),
	}

	outcome, err := env.service.RepairTransaction(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disposition != DispositionApplied {
		t.Fatalf("expected applied, got %s", outcome.Disposition)
	}

	records := env.audit.Records()
	if len(records) != 1 || records[0].Source != entity.AuditSourceRepair {
		t.Fatalf("unexpected audit records: %+v", records)
	}

	outcome, err = env.service.RepairTransaction(context.Background(), "T1")
	if err != nil || outcome.Disposition != DispositionIdempotencyNoop {
		t.Fatalf("expected second repair to be a noop, got %+v err=%v", outcome, err)
	}
}

func TestRepairTransactionNotFound(t *testing.T) {
	env := newTestEnv(t, "art-42")

	if _, err := env.service.RepairTransaction(context.Background(), "missing"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := env.service.RepairTransaction(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
