package entity

import (
	"errors"
	"strings"
)

const (
	CurrencyXOF = "XOF"

	MetadataUserID    = "userId"
	MetadataArticleID = "articleId"
)

var (
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrMissingReference    = errors.New("reference is required")
	ErrMissingMetadataUser = errors.New("metadata userId is required")
	ErrMissingMetadataRef  = errors.New("metadata articleId is required")
)

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins first and last name, skipping empty parts.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

type TransactionRequest struct {
	Amount      int64
	Description string
	Currency    string
	Customer    Customer
	Reference   string
	Metadata    map[string]string

	SuccessURL  string
	CancelURL   string
	CallbackURL string
}

func (r *TransactionRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Reference) == "" {
		return ErrMissingReference
	}
	if strings.TrimSpace(r.Metadata[MetadataUserID]) == "" {
		return ErrMissingMetadataUser
	}
	if strings.TrimSpace(r.Metadata[MetadataArticleID]) == "" {
		return ErrMissingMetadataRef
	}
	return nil
}

type TransactionOutcome string

const (
	TransactionOutcomeSuccess TransactionOutcome = "success"
	TransactionOutcomeFailure TransactionOutcome = "failure"
)

// TransactionResult carries either PaymentURL and TransactionID (success)
// or Error (failure), never both.
type TransactionResult struct {
	Outcome       TransactionOutcome
	PaymentURL    string
	TransactionID string
	Error         string
}

func NewTransactionSuccess(paymentURL, transactionID string) *TransactionResult {
	return &TransactionResult{
		Outcome:       TransactionOutcomeSuccess,
		PaymentURL:    paymentURL,
		TransactionID: transactionID,
	}
}

func NewTransactionFailure(message string) *TransactionResult {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "transaction creation failed"
	}
	return &TransactionResult{
		Outcome: TransactionOutcomeFailure,
		Error:   message,
	}
}

func (r *TransactionResult) Succeeded() bool {
	return r != nil && r.Outcome == TransactionOutcomeSuccess
}
