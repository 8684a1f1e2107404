package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
)

// ResourceStore keeps payable resources in process memory. A single mutex
// makes ApplyPayment's check and write one step.
type ResourceStore struct {
	mu        sync.Mutex
	resources map[string]*entity.PayableResource
}

func NewResourceStore() *ResourceStore {
	return &ResourceStore{resources: make(map[string]*entity.PayableResource)}
}

// Put inserts or replaces a resource.
func (s *ResourceStore) Put(resource *entity.PayableResource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copyItem := *resource
	if copyItem.PaymentStatus == "" {
		copyItem.PaymentStatus = entity.PaymentStatusUnpaid
	}
	if copyItem.UpdatedAt.IsZero() {
		copyItem.UpdatedAt = time.Now().UTC()
	}
	s.resources[resource.Reference] = &copyItem
}

func (s *ResourceStore) ApplyPayment(_ context.Context, app *entity.PaymentApplication) (repository.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.resources[app.Reference]
	if !ok {
		return 0, repository.ErrResourceNotFound
	}
	if current.PaymentID != nil && *current.PaymentID == app.PaymentID {
		return repository.ApplyResultUnchanged, nil
	}
	if current.PaymentDate != nil && current.PaymentDate.After(app.PaymentDate) {
		return repository.ApplyResultUnchanged, nil
	}

	paymentID := app.PaymentID
	paymentDate := app.PaymentDate
	amount := app.PaymentAmount
	method := app.PaymentMethod

	current.PaymentStatus = entity.PaymentStatusPaid
	current.PaymentID = &paymentID
	current.PaymentDate = &paymentDate
	current.PaymentAmount = &amount
	current.PaymentMethod = &method
	if app.PaidBy != "" {
		paidBy := app.PaidBy
		current.PaidBy = &paidBy
	} else {
		current.PaidBy = nil
	}
	current.UpdatedAt = app.AppliedAt

	return repository.ApplyResultApplied, nil
}

func (s *ResourceStore) FindByReference(_ context.Context, reference string) (*entity.PayableResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.resources[reference]
	if !ok {
		return nil, nil
	}
	copyItem := *current
	return &copyItem, nil
}

type AuditStore struct {
	mu      sync.Mutex
	records []entity.PaymentAuditRecord
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, record *entity.PaymentAuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *record)
	return nil
}

// Records returns a snapshot of everything appended so far.
func (s *AuditStore) Records() []entity.PaymentAuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.PaymentAuditRecord, len(s.records))
	copy(out, s.records)
	return out
}
