package mapper

import (
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/service"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/types"
)

func TransactionResultToResponse(result *entity.TransactionResult) *types.CreatePaymentResponse {
	if result == nil {
		return &types.CreatePaymentResponse{Success: false, Error: "transaction creation failed"}
	}
	if !result.Succeeded() {
		return &types.CreatePaymentResponse{Success: false, Error: result.Error}
	}
	return &types.CreatePaymentResponse{
		Success:       true,
		URL:           result.PaymentURL,
		TransactionID: result.TransactionID,
	}
}

func TransactionStatusToResponse(status *entity.TransactionStatus) *types.TransactionStatusResponse {
	if status == nil {
		return nil
	}

	statusName := status.RawStatus
	if statusName == "" {
		statusName = string(status.Status)
	}
	return &types.TransactionStatusResponse{
		TransactionID: status.TransactionID,
		Status:        statusName,
		Amount:        status.Amount,
		Mode:          status.Mode,
		Reference:     status.Reference,
	}
}

func ReconciliationOutcomeToResponse(outcome *service.ReconciliationOutcome) *types.WebhookResponse {
	if outcome == nil {
		return &types.WebhookResponse{Message: "Webhook processed"}
	}
	return &types.WebhookResponse{
		Message:     "Webhook processed",
		Disposition: string(outcome.Disposition),
		Warnings:    cloneStrings(outcome.Warnings),
	}
}

func cloneStrings(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
