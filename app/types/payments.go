package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

const maxWebhookBodyBytes = 1 << 20

type CustomerPayload struct {
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type CreatePaymentRequest struct {
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	Customer    CustomerPayload `json:"customer"`
	ArticleId   string          `json:"articleId"`
	UserId      string          `json:"userId"`
}

func (r *CreatePaymentRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *CreatePaymentRequest) GetDescription() string {
	if r == nil {
		return ""
	}
	return r.Description
}

func (r *CreatePaymentRequest) GetArticleId() string {
	if r == nil {
		return ""
	}
	return r.ArticleId
}

func (r *CreatePaymentRequest) GetUserId() string {
	if r == nil {
		return ""
	}
	return r.UserId
}

func (r *CreatePaymentRequest) GetCustomer() entity.Customer {
	if r == nil {
		return entity.Customer{}
	}
	return entity.Customer{
		FirstName: r.Customer.FirstName,
		LastName:  r.Customer.LastName,
		Email:     r.Customer.Email,
		Phone:     r.Customer.PhoneNumber,
	}
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Description = strings.TrimSpace(body.Description)
	body.ArticleId = strings.TrimSpace(body.ArticleId)
	body.UserId = strings.TrimSpace(body.UserId)
	body.Customer.FirstName = strings.TrimSpace(body.Customer.FirstName)
	body.Customer.LastName = strings.TrimSpace(body.Customer.LastName)
	body.Customer.Email = strings.ToLower(strings.TrimSpace(body.Customer.Email))
	body.Customer.PhoneNumber = strings.TrimSpace(body.Customer.PhoneNumber)

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.GetAmount() <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.GetArticleId() == "" {
		return errors.New("articleId is required")
	}
	if r.GetUserId() == "" {
		return errors.New("userId is required")
	}
	if r.Customer.Email != "" && !strings.Contains(r.Customer.Email, "@") {
		return errors.New("customer email is invalid")
	}
	return nil
}

type GetTransactionStatusRequest struct {
	TransactionId string
}

func (r *GetTransactionStatusRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func NewGetTransactionStatusRequestFromContext(ctx echo.Context) (*GetTransactionStatusRequest, error) {
	return &GetTransactionStatusRequest{TransactionId: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetTransactionStatusRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

// FedaPayWebhookRequest carries the untouched body so the signature can be
// checked against the exact bytes that were sent.
type FedaPayWebhookRequest struct {
	Payload   []byte
	Signature string
}

func NewFedaPayWebhookRequestFromContext(ctx echo.Context, signatureHeader string) (*FedaPayWebhookRequest, error) {
	rawBody, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return nil, err
	}

	return &FedaPayWebhookRequest{
		Payload:   rawBody,
		Signature: strings.TrimSpace(ctx.Request().Header.Get(signatureHeader)),
	}, nil
}

func (r *FedaPayWebhookRequest) Validate() error {
	if len(strings.TrimSpace(string(r.Payload))) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

type CreatePaymentResponse struct {
	Success       bool   `json:"success"`
	URL           string `json:"url,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
}

type TransactionStatusResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Mode          string `json:"mode,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

type WebhookResponse struct {
	Message     string   `json:"message"`
	Disposition string   `json:"disposition"`
	Warnings    []string `json:"warnings,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
