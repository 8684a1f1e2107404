package webhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
)

const SignatureHeader = "X-FEDAPAY-SIGNATURE"

type Validator struct {
	verifier provider.SignatureVerifier
}

// NewValidator builds a validator. A nil verifier disables signature checks.
func NewValidator(verifier provider.SignatureVerifier) *Validator {
	return &Validator{verifier: verifier}
}

// Verify checks the signature header when a verifier is configured.
func (v *Validator) Verify(raw []byte, signature string) error {
	if v == nil || v.verifier == nil {
		return nil
	}
	if err := v.verifier.VerifySignature(raw, signature); err != nil {
		return newValidationError(ErrInvalidSignature, err.Error())
	}
	return nil
}

// Validate extracts the fields needed to reconcile a callback. The
// transaction is read from "transaction", or from "entity" which FedaPay
// uses for its event envelopes.
func (v *Validator) Validate(raw []byte) (*entity.CallbackPayload, error) {
	var body struct {
		Transaction json.RawMessage `json:"transaction"`
		Entity      json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, newValidationError(ErrMalformedPayload, err.Error())
	}

	transactionRaw := body.Transaction
	if isEmptyJSON(transactionRaw) {
		transactionRaw = body.Entity
	}
	if isEmptyJSON(transactionRaw) {
		return nil, newValidationError(ErrMissingTransaction, "")
	}

	var transaction provider.Transaction
	if err := json.Unmarshal(transactionRaw, &transaction); err != nil {
		return nil, newValidationError(ErrMalformedPayload, err.Error())
	}

	payload, err := ValidateTransaction(&transaction)
	if err != nil {
		return nil, err
	}
	payload.Raw = raw

	return payload, nil
}

// ValidateTransaction applies the callback rules to a transaction fetched
// from the processor, so pulled and pushed data go through the same checks.
func ValidateTransaction(transaction *provider.Transaction) (*entity.CallbackPayload, error) {
	if transaction == nil {
		return nil, newValidationError(ErrMissingTransaction, "")
	}

	metadata := transaction.StringMetadata()
	reference := strings.TrimSpace(transaction.Reference)
	metadataReference := strings.TrimSpace(metadata[entity.MetadataArticleID])

	payload := &entity.CallbackPayload{
		TransactionID: strings.TrimSpace(string(transaction.ID)),
		Status:        entity.ParseCallbackStatus(transaction.Status),
		RawStatus:     strings.TrimSpace(transaction.Status),
		Amount:        int64(transaction.Amount),
		Mode:          strings.TrimSpace(transaction.Mode),
		Metadata:      metadata,
		ProcessedAt:   transaction.ApprovedTime(),
	}

	switch {
	case reference != "":
		payload.Reference = reference
		payload.ReferenceSource = entity.ReferenceSourceField
		if metadataReference != "" && metadataReference != reference {
			payload.Warnings = append(payload.Warnings, entity.WarningReferenceMismatch)
		}
	case metadataReference != "":
		payload.Reference = metadataReference
		payload.ReferenceSource = entity.ReferenceSourceMetadata
	default:
		return nil, newValidationError(ErrMissingReference, "")
	}

	if payload.TransactionID == "" {
		return nil, newValidationError(ErrMissingTransactionID, "")
	}

	if transaction.Customer != nil {
		payload.Customer = &entity.Customer{
			FirstName: strings.TrimSpace(transaction.Customer.FirstName),
			LastName:  strings.TrimSpace(transaction.Customer.LastName),
			Email:     strings.TrimSpace(transaction.Customer.Email),
			Phone:     transaction.Customer.PhoneNumber(),
		}
	}

	return payload, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
