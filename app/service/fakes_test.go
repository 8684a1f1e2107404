package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/notifier"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository/memory"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
	"github.com/vibast-solutions/ms-go-fedapay-payments/config"
)

type fakeProcessor struct {
	mu           sync.Mutex
	createResult *entity.TransactionResult
	lastRequest  *entity.TransactionRequest
	createCalls  int
	transactions map[string]*provider.Transaction
	getErr       error
	getCalls     int
}

func (p *fakeProcessor) CreateTransaction(_ context.Context, req *entity.TransactionRequest) *entity.TransactionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	copyReq := *req
	p.lastRequest = &copyReq
	if p.createResult != nil {
		return p.createResult
	}
	return entity.NewTransactionSuccess("https://process.fedapay.com/pay/T1", "T1")
}

func (p *fakeProcessor) GetTransaction(_ context.Context, transactionID string) (*provider.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getCalls++
	if p.getErr != nil {
		return nil, p.getErr
	}
	transaction, ok := p.transactions[transactionID]
	if !ok {
		return nil, provider.ErrTransactionNotFound
	}
	copyItem := *transaction
	return &copyItem, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifier.PaymentConfirmation
	err   error
	block chan struct{}
}

func (n *recordingNotifier) NotifyPaymentConfirmed(ctx context.Context, confirmation notifier.PaymentConfirmation) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, confirmation)
	return n.err
}

func (n *recordingNotifier) Calls() []notifier.PaymentConfirmation {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifier.PaymentConfirmation, len(n.calls))
	copy(out, n.calls)
	return out
}

type failingResourceRepo struct {
	err        error
	applyCalls int
}

func (r *failingResourceRepo) ApplyPayment(context.Context, *entity.PaymentApplication) (repository.ApplyResult, error) {
	r.applyCalls++
	return 0, r.err
}

func (r *failingResourceRepo) FindByReference(context.Context, string) (*entity.PayableResource, error) {
	return nil, r.err
}

type failingAuditRepo struct{}

func (failingAuditRepo) Append(context.Context, *entity.PaymentAuditRecord) error {
	return errors.New("audit store down")
}

type fakeStatusCache struct {
	mu    sync.Mutex
	items map[string]*entity.TransactionStatus
	sets  int
}

func (c *fakeStatusCache) Get(_ context.Context, transactionID string) (*entity.TransactionStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[transactionID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (c *fakeStatusCache) Set(_ context.Context, status *entity.TransactionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if !status.Status.Terminal() {
		return nil
	}
	if c.items == nil {
		c.items = map[string]*entity.TransactionStatus{}
	}
	copyItem := *status
	c.items[status.TransactionID] = &copyItem
	return nil
}

type stubVerifier struct {
	err error
}

func (v stubVerifier) VerifySignature([]byte, string) error {
	return v.err
}

type testEnv struct {
	service   *PaymentService
	resources *memory.ResourceStore
	audit     *memory.AuditStore
	processor *fakeProcessor
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T, references ...string) *testEnv {
	t.Helper()
	resources := memory.NewResourceStore()
	for _, reference := range references {
		resources.Put(&entity.PayableResource{Reference: reference})
	}
	audit := memory.NewAuditStore()
	processor := &fakeProcessor{transactions: map[string]*provider.Transaction{}}
	paymentNotifier := &recordingNotifier{}

	svc := NewPaymentService(
		resources,
		audit,
		processor,
		webhook.NewValidator(nil),
		paymentNotifier,
		config.PaymentsConfig{Currency: "XOF", StoreTimeout: time.Second, NotifyTimeout: time.Second},
	)
	t.Cleanup(svc.Wait)

	return &testEnv{
		service:   svc,
		resources: resources,
		audit:     audit,
		processor: processor,
		notifier:  paymentNotifier,
	}
}

func (e *testEnv) auditStatuses() []string {
	records := e.audit.Records()
	statuses := make([]string, 0, len(records))
	for _, record := range records {
		statuses = append(statuses, record.Status)
	}
	return statuses
}
