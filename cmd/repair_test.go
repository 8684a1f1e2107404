package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/service"
)

type fakeRepairer struct {
	seen     []string
	failures map[string]error
}

func (r *fakeRepairer) RepairTransaction(ctx context.Context, transactionID string) (*service.ReconciliationOutcome, error) {
	r.seen = append(r.seen, transactionID)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected deadline")
	}
	if err, ok := r.failures[transactionID]; ok {
		return nil, err
	}
	return &service.ReconciliationOutcome{TransactionID: transactionID, Disposition: service.DispositionApplied}, nil
}

func TestRunRepairCountsFailures(t *testing.T) {
	repairer := &fakeRepairer{failures: map[string]error{"T2": service.ErrTransactionNotFound}}

	failed := runRepair(context.Background(), repairer, []string{"T1", "T2", "T3"}, time.Second)
	if failed != 1 {
		t.Fatalf("expected 1 failure, got %d", failed)
	}
	if len(repairer.seen) != 3 {
		t.Fatalf("expected every transaction to be attempted, got %v", repairer.seen)
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	err := printStatus(&buf, &entity.TransactionStatus{TransactionID: "T1", Status: entity.CallbackStatusApproved, RawStatus: "approved", Amount: 5000, Reference: "art-42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["status"] != "approved" || decoded["reference"] != "art-42" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
