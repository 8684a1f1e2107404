package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/factory"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/notifier"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
	"github.com/vibast-solutions/ms-go-fedapay-payments/config"
)

type createPaymentRequest interface {
	GetAmount() int64
	GetDescription() string
	GetArticleId() string
	GetUserId() string
	GetCustomer() entity.Customer
}

type resourceRepository interface {
	ApplyPayment(ctx context.Context, app *entity.PaymentApplication) (repository.ApplyResult, error)
	FindByReference(ctx context.Context, reference string) (*entity.PayableResource, error)
}

type auditRepository interface {
	Append(ctx context.Context, record *entity.PaymentAuditRecord) error
}

type statusCache interface {
	Get(ctx context.Context, transactionID string) (*entity.TransactionStatus, error)
	Set(ctx context.Context, status *entity.TransactionStatus) error
}

type PaymentService struct {
	resourceRepo resourceRepository
	auditRepo    auditRepository
	processor    provider.Processor
	validator    *webhook.Validator
	notifier     notifier.Notifier
	cache        statusCache
	paymentsCfg  config.PaymentsConfig
	logger       logrus.FieldLogger

	notifications sync.WaitGroup
}

func NewPaymentService(
	resourceRepo resourceRepository,
	auditRepo auditRepository,
	processor provider.Processor,
	validator *webhook.Validator,
	paymentNotifier notifier.Notifier,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	if validator == nil {
		validator = webhook.NewValidator(nil)
	}
	if paymentNotifier == nil {
		paymentNotifier = notifier.NewLogNotifier()
	}
	if paymentsCfg.NotifyTimeout <= 0 {
		paymentsCfg.NotifyTimeout = 10 * time.Second
	}
	if strings.TrimSpace(paymentsCfg.Currency) == "" {
		paymentsCfg.Currency = entity.CurrencyXOF
	}

	return &PaymentService{
		resourceRepo: resourceRepo,
		auditRepo:    auditRepo,
		processor:    processor,
		validator:    validator,
		notifier:     paymentNotifier,
		paymentsCfg:  paymentsCfg,
		logger:       factory.NewModuleLogger("payments-service"),
	}
}

// SetStatusCache enables caching of terminal statuses for QueryStatus.
func (s *PaymentService) SetStatusCache(cache statusCache) {
	s.cache = cache
}

// CreatePayment starts a processor transaction for an article. A processor
// failure is returned as a failure result, not as an error.
func (s *PaymentService) CreatePayment(ctx context.Context, req createPaymentRequest) (*entity.TransactionResult, error) {
	articleID := strings.TrimSpace(req.GetArticleId())
	userID := strings.TrimSpace(req.GetUserId())

	txReq := &entity.TransactionRequest{
		Amount:      req.GetAmount(),
		Description: strings.TrimSpace(req.GetDescription()),
		Currency:    s.paymentsCfg.Currency,
		Customer:    req.GetCustomer(),
		Reference:   articleID,
		Metadata: map[string]string{
			entity.MetadataUserID:    userID,
			entity.MetadataArticleID: articleID,
		},
	}
	if err := txReq.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	result := s.processor.CreateTransaction(ctx, txReq)
	logger := s.logger.WithFields(logrus.Fields{
		"reference": articleID,
		"amount":    txReq.Amount,
	})
	if !result.Succeeded() {
		logger.WithField("error", result.Error).Warn("FedaPay transaction creation failed")
		return result, nil
	}

	logger.WithField("transaction_id", result.TransactionID).Info("FedaPay transaction created")
	return result, nil
}

// QueryStatus pulls the current status of a transaction from the processor.
// Terminal statuses are served from the cache when one is configured.
func (s *PaymentService) QueryStatus(ctx context.Context, transactionID string) (*entity.TransactionStatus, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, ErrInvalidRequest
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, transactionID)
		if err != nil {
			s.logger.WithError(err).WithField("transaction_id", transactionID).Warn("Status cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	transaction, err := s.fetchTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	status := &entity.TransactionStatus{
		TransactionID: transactionID,
		Status:        entity.ParseCallbackStatus(transaction.Status),
		RawStatus:     strings.TrimSpace(transaction.Status),
		Amount:        int64(transaction.Amount),
		Mode:          strings.TrimSpace(transaction.Mode),
		Reference:     strings.TrimSpace(transaction.Reference),
	}
	if status.Reference == "" {
		status.Reference = transaction.StringMetadata()[entity.MetadataArticleID]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, status); err != nil {
			s.logger.WithError(err).WithField("transaction_id", transactionID).Warn("Status cache write failed")
		}
	}

	return status, nil
}

// GetResource returns the current payment state of a resource.
func (s *PaymentService) GetResource(ctx context.Context, reference string) (*entity.PayableResource, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidRequest
	}
	resource, err := s.resourceRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, ErrResourceNotFound
	}
	return resource, nil
}

// Wait blocks until every pending confirmation notification has finished.
func (s *PaymentService) Wait() {
	s.notifications.Wait()
}

func (s *PaymentService) fetchTransaction(ctx context.Context, transactionID string) (*provider.Transaction, error) {
	transaction, err := s.processor.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, provider.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		return nil, fmt.Errorf("%w: %w", ErrProcessorFailure, err)
	}
	return transaction, nil
}
