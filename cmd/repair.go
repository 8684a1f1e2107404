package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/service"
)

var repairTimeout time.Duration

var repairCmd = &cobra.Command{
	Use:   "repair <transaction-id>...",
	Short: "Pull transactions from FedaPay and apply any missed approvals",
	Long:  "Fetch each transaction from FedaPay and run it through the same reconciliation as a webhook. Safe to repeat: already applied payments are reported as no-ops.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, paymentService, cleanup := mustCreatePaymentService()
		defer cleanup()

		failed := runRepair(cmd.Context(), paymentService, args, repairTimeout)
		if failed > 0 {
			return fmt.Errorf("%d of %d transactions failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
	repairCmd.Flags().DurationVar(&repairTimeout, "timeout", 30*time.Second, "Timeout per transaction")
}

type transactionRepairer interface {
	RepairTransaction(ctx context.Context, transactionID string) (*service.ReconciliationOutcome, error)
}

// runRepair returns the number of transactions that could not be repaired.
func runRepair(ctx context.Context, repairer transactionRepairer, transactionIDs []string, timeout time.Duration) int {
	if ctx == nil {
		ctx = context.Background()
	}

	failed := 0
	for _, transactionID := range transactionIDs {
		err := runJob("repair", func() error {
			jobCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			outcome, err := repairer.RepairTransaction(jobCtx, transactionID)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"transaction_id": outcome.TransactionID,
				"reference":      outcome.Reference,
				"status":         string(outcome.Status),
				"disposition":    string(outcome.Disposition),
			}).Info("Transaction repaired")
			return nil
		})
		if err != nil {
			failed++
			if provider.IsRetryable(err) || errors.Is(err, service.ErrPersistence) {
				logrus.WithField("transaction_id", transactionID).Warn("Repair failed with a transient error, run again later")
			}
		}
	}
	return failed
}

func runJob(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return err
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
	return nil
}
