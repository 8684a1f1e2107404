package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/factory"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/service"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/types"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.CreatePaymentResponse{Success: false, Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.CreatePaymentResponse{Success: false, Error: err.Error()})
	}

	result, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return ctx.JSON(http.StatusBadRequest, &types.CreatePaymentResponse{Success: false, Error: err.Error()})
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment failed")
		return ctx.JSON(http.StatusInternalServerError, &types.CreatePaymentResponse{Success: false, Error: "internal server error"})
	}

	resp := mapper.TransactionResultToResponse(result)
	if !resp.Success {
		return ctx.JSON(http.StatusBadGateway, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *PaymentController) GetTransactionStatus(ctx echo.Context) error {
	req, err := types.NewGetTransactionStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	status, err := c.paymentService.QueryStatus(ctx.Request().Context(), req.GetTransactionId())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		case errors.Is(err, service.ErrProcessorFailure):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn("Transaction status query failed")
			return c.writeError(ctx, http.StatusBadGateway, "payment processor unavailable")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Transaction status query failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.TransactionStatusToResponse(status))
}

func (c *PaymentController) HandleFedaPayWebhook(ctx echo.Context) error {
	req, err := types.NewFedaPayWebhookRequestFromContext(ctx, webhook.SignatureHeader)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.paymentService.HandleCallback(ctx.Request().Context(), req.Payload, req.Signature)
	if err != nil {
		switch {
		case webhook.IsValidationError(err), errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrResourceNotFound):
			return c.writeError(ctx, http.StatusNotFound, "resource not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle FedaPay webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.ReconciliationOutcomeToResponse(outcome))
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
