package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/mapper"
)

var statusCmd = &cobra.Command{
	Use:   "status <transaction-id>",
	Short: "Print the current FedaPay status of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, paymentService, cleanup := mustCreatePaymentService()
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, err := paymentService.QueryStatus(ctx, args[0])
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), status)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStatus(w io.Writer, status *entity.TransactionStatus) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(mapper.TransactionStatusToResponse(status)); err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return nil
}
