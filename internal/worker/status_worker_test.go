package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/config"
	"github.com/yenharbor/payment-core/internal/domain"
)

type stubQuerier struct {
	responses map[string]map[string]string
	errs      map[string]error
	verify    bool
	queries   []string
}

func (s *stubQuerier) QueryStatus(ctx context.Context, merchTxnRef string) (map[string]string, error) {
	s.queries = append(s.queries, merchTxnRef)
	if err := s.errs[merchTxnRef]; err != nil {
		return nil, err
	}
	return s.responses[merchTxnRef], nil
}

func (s *stubQuerier) VerifyResponse(params map[string]string) bool {
	return s.verify
}

type recordingProcessor struct {
	txns []*domain.Transaction
	err  error
}

func (p *recordingProcessor) ProcessTransaction(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*services.ReconcileResult, error) {
	p.txns = append(p.txns, txn)
	if p.err != nil {
		return nil, p.err
	}
	return &services.ReconcileResult{
		Outcome: domain.Outcome{Status: domain.LedgerStatusSuccess},
	}, nil
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Interval:   time.Minute,
		QueryAfter: 15 * time.Minute,
		BatchSize:  50,
	}
}

func staleAttempt(ref string) *domain.PaymentAttempt {
	return &domain.PaymentAttempt{
		MerchTxnRef: ref,
		BookingID:   41,
		BookingCode: "YH20260113A1CD0F",
		Amount:      1500000,
		Status:      domain.AttemptStatusPending,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
}

func approvedResponse(amount, txnNo string) map[string]string {
	params := map[string]string{
		"vpc_DRExists":        "Y",
		"vpc_TxnResponseCode": "0",
		"vpc_Message":         "Approved",
		"vpc_Amount":          amount,
	}
	if txnNo != "" {
		params["vpc_TransactionNo"] = txnNo
	}
	return params
}

func newTestWorker(attempts *services.MockAttemptRepository, querier *stubQuerier, processor *recordingProcessor) *StatusWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStatusWorker(attempts, querier, processor, testWorkerConfig(), logger)
}

func TestSweep_ApprovedAttemptIsReconciledAndResolved(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("YH20260113A1CD0F-a1b2c3d4"))
	querier := &stubQuerier{
		verify: true,
		responses: map[string]map[string]string{
			"YH20260113A1CD0F-a1b2c3d4": approvedResponse("150000000", "2026011398765"),
		},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	require.Len(t, processor.txns, 1)
	txn := processor.txns[0]
	assert.Equal(t, domain.DirectionIn, txn.Direction)
	assert.Equal(t, int64(1500000), txn.Amount, "gateway amount is in hundredths")
	assert.Equal(t, "YH20260113A1CD0F", txn.Narrative)
	assert.Equal(t, "2026011398765", txn.RefCode)

	resolved := attempts.Attempt("YH20260113A1CD0F-a1b2c3d4")
	require.NotNil(t, resolved)
	assert.Equal(t, domain.AttemptStatusResolved, resolved.Status)
	assert.Equal(t, "approved: success", resolved.Result)
}

func TestSweep_MissingTransactionNoGetsSyntheticRef(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify:    true,
		responses: map[string]map[string]string{"ref-1": approvedResponse("150000000", "")},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	require.Len(t, processor.txns, 1)
	assert.Equal(t, "qdr-ref-1", processor.txns[0].RefCode)
}

func TestSweep_UnparseableAmountFallsBackToAttempt(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify:    true,
		responses: map[string]map[string]string{"ref-1": approvedResponse("not-a-number", "123")},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	require.Len(t, processor.txns, 1)
	assert.Equal(t, int64(1500000), processor.txns[0].Amount)
}

func TestSweep_DeclinedAttemptIsResolvedWithoutReconciling(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify: true,
		responses: map[string]map[string]string{"ref-1": {
			"vpc_DRExists":        "Y",
			"vpc_TxnResponseCode": "24",
			"vpc_Message":         "Customer cancelled",
		}},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Empty(t, processor.txns)
	resolved := attempts.Attempt("ref-1")
	assert.Equal(t, domain.AttemptStatusResolved, resolved.Status)
	assert.Contains(t, resolved.Result, "declined: code 24")
}

func TestSweep_NoRecordYetStaysPending(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify:    true,
		responses: map[string]map[string]string{"ref-1": {"vpc_DRExists": "N"}},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Empty(t, processor.txns)
	assert.Equal(t, domain.AttemptStatusPending, attempts.Attempt("ref-1").Status)
}

func TestSweep_TamperedResponseStaysPending(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify:    false,
		responses: map[string]map[string]string{"ref-1": approvedResponse("150000000", "123")},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Empty(t, processor.txns)
	assert.Equal(t, domain.AttemptStatusPending, attempts.Attempt("ref-1").Status)
}

func TestSweep_QueryFailureDoesNotStopTheBatch(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-broken"))
	attempts.SeedAttempt(staleAttempt("ref-ok"))
	querier := &stubQuerier{
		verify: true,
		responses: map[string]map[string]string{
			"ref-ok": approvedResponse("150000000", "123"),
		},
		errs: map[string]error{
			"ref-broken": fmt.Errorf("gateway timeout"),
		},
	}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, domain.AttemptStatusResolved, attempts.Attempt("ref-ok").Status)
	assert.Equal(t, domain.AttemptStatusPending, attempts.Attempt("ref-broken").Status)
}

func TestSweep_ReconcileFailureLeavesAttemptForRetry(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	attempts.SeedAttempt(staleAttempt("ref-1"))
	querier := &stubQuerier{
		verify:    true,
		responses: map[string]map[string]string{"ref-1": approvedResponse("150000000", "123")},
	}
	processor := &recordingProcessor{err: fmt.Errorf("ledger unavailable")}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, domain.AttemptStatusPending, attempts.Attempt("ref-1").Status)
}

func TestSweep_FreshAttemptsAreLeftAlone(t *testing.T) {
	attempts := services.NewMockAttemptRepository()
	fresh := staleAttempt("ref-fresh")
	fresh.CreatedAt = time.Now()
	attempts.SeedAttempt(fresh)
	querier := &stubQuerier{verify: true}
	processor := &recordingProcessor{}
	w := newTestWorker(attempts, querier, processor)

	require.NoError(t, w.Sweep(context.Background()))

	assert.Empty(t, querier.queries)
	assert.Empty(t, processor.txns)
}
