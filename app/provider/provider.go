package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

// Processor is what the payment service needs from the payment processor.
type Processor interface {
	CreateTransaction(ctx context.Context, req *entity.TransactionRequest) *entity.TransactionResult
	GetTransaction(ctx context.Context, transactionID string) (*Transaction, error)
}

// SignatureVerifier checks a webhook body against its signature header.
type SignatureVerifier interface {
	VerifySignature(payload []byte, signatureHeader string) error
}
