package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

const (
	EnvironmentLive    = "live"
	EnvironmentSandbox = "sandbox"

	liveBaseURL    = "https://api.fedapay.com"
	sandboxBaseURL = "https://sandbox-api.fedapay.com"

	transactionEnvelopeKey = "v1/transaction"
	maxResponseBodyBytes   = 1 << 20
)

type FedaPayConfig struct {
	APIKey      string
	Environment string
	// BaseURL overrides the environment endpoint when set.
	BaseURL string

	CallbackURL string
	SuccessURL  string
	CancelURL   string

	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type FedaPayClient struct {
	cfg     FedaPayConfig
	baseURL string
	client  *http.Client
}

func NewFedaPayClient(cfg FedaPayConfig) *FedaPayClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tolerance := cfg.SignatureToleranceSeconds
	if tolerance <= 0 {
		tolerance = 300
	}
	cfg.SignatureToleranceSeconds = tolerance

	return &FedaPayClient{
		cfg:     cfg,
		baseURL: resolveBaseURL(cfg),
		client:  &http.Client{Timeout: timeout},
	}
}

func resolveBaseURL(cfg FedaPayConfig) string {
	if override := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); override != "" {
		return override
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Environment), EnvironmentLive) {
		return liveBaseURL
	}
	return sandboxBaseURL
}

func (c *FedaPayClient) BaseURL() string {
	return c.baseURL
}

type createTransactionBody struct {
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Currency    currencyBody      `json:"currency"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Customer    *customerBody     `json:"customer,omitempty"`
	Reference   string            `json:"reference"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL redirectURLBody   `json:"redirect_url"`
}

type currencyBody struct {
	ISO string `json:"iso"`
}

type customerBody struct {
	FirstName string     `json:"firstname,omitempty"`
	LastName  string     `json:"lastname,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     *phoneBody `json:"phone_number,omitempty"`
}

type phoneBody struct {
	Number string `json:"number"`
}

type redirectURLBody struct {
	Success string `json:"success,omitempty"`
	Cancel  string `json:"cancel,omitempty"`
}

// CreateTransaction asks the processor for a new transaction. Every failure,
// including transport errors and unexpected bodies, comes back as a failure
// result. Each call creates a distinct processor transaction.
func (c *FedaPayClient) CreateTransaction(ctx context.Context, req *entity.TransactionRequest) *entity.TransactionResult {
	if req == nil {
		return entity.NewTransactionFailure("transaction request is required")
	}
	if err := req.Validate(); err != nil {
		return entity.NewTransactionFailure(err.Error())
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return entity.NewTransactionFailure(ErrAPIKeyMissing.Error())
	}

	payload, err := json.Marshal(c.buildCreateBody(req))
	if err != nil {
		return entity.NewTransactionFailure(err.Error())
	}

	body, err := c.do(ctx, "create transaction", http.MethodPost, "/v1/transactions", payload)
	if err != nil {
		return entity.NewTransactionFailure(failureMessage(err))
	}

	transaction, err := decodeTransactionEnvelope(body)
	if err != nil {
		return entity.NewTransactionFailure(err.Error())
	}

	transactionID := strings.TrimSpace(string(transaction.ID))
	paymentURL := strings.TrimSpace(transaction.PaymentURL)
	if transactionID == "" || paymentURL == "" {
		return entity.NewTransactionFailure("payment url not found in fedapay response")
	}

	return entity.NewTransactionSuccess(paymentURL, transactionID)
}

// GetTransaction fetches the current state of a transaction. It never
// changes anything on either side.
func (c *FedaPayClient) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, ErrTransactionNotFound
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrAPIKeyMissing
	}

	body, err := c.do(ctx, "get transaction", http.MethodGet, "/v1/transactions/"+url.PathEscape(transactionID), nil)
	if err != nil {
		var processorErr *ProcessorError
		if errors.As(err, &processorErr) && processorErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		return nil, err
	}

	transaction, err := decodeTransactionEnvelope(body)
	if err != nil {
		return nil, &ProcessorError{Op: "get transaction", Message: err.Error(), Err: err}
	}
	if strings.TrimSpace(string(transaction.ID)) == "" {
		transaction.ID = FlexString(transactionID)
	}

	return transaction, nil
}

func (c *FedaPayClient) buildCreateBody(req *entity.TransactionRequest) *createTransactionBody {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = entity.CurrencyXOF
	}

	callbackURL := firstNonEmpty(req.CallbackURL, c.cfg.CallbackURL)
	successURL := firstNonEmpty(req.SuccessURL, c.cfg.SuccessURL)
	cancelURL := firstNonEmpty(req.CancelURL, c.cfg.CancelURL)

	body := &createTransactionBody{
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Currency:    currencyBody{ISO: currency},
		CallbackURL: callbackURL,
		Reference:   strings.TrimSpace(req.Reference),
		Metadata: map[string]string{
			entity.MetadataUserID:    strings.TrimSpace(req.Metadata[entity.MetadataUserID]),
			entity.MetadataArticleID: strings.TrimSpace(req.Metadata[entity.MetadataArticleID]),
		},
		RedirectURL: redirectURLBody{Success: successURL, Cancel: cancelURL},
	}

	customer := req.Customer
	if customer.FirstName != "" || customer.LastName != "" || customer.Email != "" || customer.Phone != "" {
		body.Customer = &customerBody{
			FirstName: strings.TrimSpace(customer.FirstName),
			LastName:  strings.TrimSpace(customer.LastName),
			Email:     strings.TrimSpace(customer.Email),
		}
		if phone := strings.TrimSpace(customer.Phone); phone != "" {
			body.Customer.Phone = &phoneBody{Number: phone}
		}
	}

	return body
}

func (c *FedaPayClient) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &ProcessorError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProcessorError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &ProcessorError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProcessorError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessageFromBody(body),
		}
	}

	return body, nil
}

func decodeTransactionEnvelope(body []byte) (*Transaction, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw, ok := envelope[transactionEnvelopeKey]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: %s object missing", ErrMalformedResponse, transactionEnvelopeKey)
	}

	var transaction Transaction
	if err := json.Unmarshal(raw, &transaction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &transaction, nil
}

func errorMessageFromBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}
	return truncate(strings.TrimSpace(string(body)), 512)
}

// failureMessage prefers the processor's own message over the wrapped form.
func failureMessage(err error) string {
	var processorErr *ProcessorError
	if errors.As(err, &processorErr) && processorErr.Message != "" {
		return processorErr.Message
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
