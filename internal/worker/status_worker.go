package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/config"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/infrastructure/paygate"
	"github.com/yenharbor/payment-core/internal/metrics"
)

// TransactionProcessor is the slice of the reconciliation service the
// worker feeds query results into.
type TransactionProcessor interface {
	ProcessTransaction(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*services.ReconcileResult, error)
}

// StatusWorker chases payment attempts that never produced a customer
// return or a webhook, by polling the gateway's status endpoint. Approved
// results are fed through the same reconciliation path as webhook
// deliveries, so the ledger stays the single idempotency authority.
type StatusWorker struct {
	attempts  application.AttemptRepository
	gateway   application.StatusQuerier
	processor TransactionProcessor
	cfg       config.WorkerConfig
	logger    *slog.Logger
}

func NewStatusWorker(
	attempts application.AttemptRepository,
	gateway application.StatusQuerier,
	processor TransactionProcessor,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *StatusWorker {
	return &StatusWorker{
		attempts:  attempts,
		gateway:   gateway,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

func (w *StatusWorker) Start(ctx context.Context) {
	w.logger.Info("status worker started",
		"interval", w.cfg.Interval,
		"query_after", w.cfg.QueryAfter,
	)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("status worker stopping")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("status sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass over unresolved attempts. Exposed so a sweep can be
// triggered outside the ticker loop.
func (w *StatusWorker) Sweep(ctx context.Context) error {
	attempts, err := w.attempts.FindUnresolved(ctx, w.cfg.QueryAfter, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list unresolved attempts: %w", err)
	}

	var resolved int
	for _, attempt := range attempts {
		done, err := w.chase(ctx, attempt)
		if err != nil {
			// Left pending, picked up again next sweep.
			w.logger.Error("status query failed",
				"merch_txn_ref", attempt.MerchTxnRef,
				"error", err)
			continue
		}
		if done {
			resolved++
		}
	}

	if resolved > 0 {
		w.logger.Info("resolved stale attempts", "count", resolved)
	}
	return nil
}

func (w *StatusWorker) chase(ctx context.Context, attempt *domain.PaymentAttempt) (bool, error) {
	start := time.Now()
	params, err := w.gateway.QueryStatus(ctx, attempt.MerchTxnRef)
	metrics.GatewayQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return false, err
	}

	if !w.gateway.VerifyResponse(params) {
		return false, fmt.Errorf("status response signature rejected for %s", attempt.MerchTxnRef)
	}

	if !paygate.RecordExists(params) {
		// Customer may still be on the payment page.
		return false, nil
	}

	code := params[paygate.FieldResponseCode]
	if !paygate.Approved(params) {
		result := fmt.Sprintf("declined: code %s %s", code, params[paygate.FieldMessage])
		if err := w.attempts.MarkResolved(ctx, attempt.MerchTxnRef, result); err != nil {
			return false, fmt.Errorf("mark declined attempt: %w", err)
		}
		w.logger.Info("attempt declined at gateway",
			"merch_txn_ref", attempt.MerchTxnRef,
			"response_code", code)
		return true, nil
	}

	txn := queryResultTransaction(attempt, params)
	raw, err := json.Marshal(params)
	if err != nil {
		return false, fmt.Errorf("encode query result: %w", err)
	}

	result, err := w.processor.ProcessTransaction(ctx, txn, raw)
	if err != nil {
		return false, fmt.Errorf("reconcile query result: %w", err)
	}

	if err := w.attempts.MarkResolved(ctx, attempt.MerchTxnRef, "approved: "+string(result.Outcome.Status)); err != nil {
		return false, fmt.Errorf("mark approved attempt: %w", err)
	}

	w.logger.Info("attempt settled via status query",
		"merch_txn_ref", attempt.MerchTxnRef,
		"status", result.Outcome.Status)
	return true, nil
}

// queryResultTransaction shapes an approved status response like an inbound
// transfer so the reconciliation path can treat both the same. The gateway
// reports amounts in hundredths of a unit; the narrative is the booking code
// the attempt was created for.
func queryResultTransaction(attempt *domain.PaymentAttempt, params map[string]string) *domain.Transaction {
	amount := attempt.Amount
	if v, err := strconv.ParseInt(params[paygate.FieldAmount], 10, 64); err == nil {
		amount = v / 100
	}

	refCode := params[paygate.FieldTxnNo]
	if refCode == "" {
		refCode = "qdr-" + attempt.MerchTxnRef
	}

	return &domain.Transaction{
		Gateway:   "querydr",
		Timestamp: time.Now(),
		Direction: domain.DirectionIn,
		Narrative: attempt.BookingCode,
		Amount:    amount,
		RefCode:   refCode,
	}
}
