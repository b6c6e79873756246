package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/metrics"
)

// ReconcileService matches inbound payment transactions to bookings and
// drives the pending -> confirmed transition, gated by the idempotency
// ledger.
type ReconcileService struct {
	ledger   application.LedgerRepository
	bookings application.BookingStore
	notifier application.Notifier
	logger   *slog.Logger
}

func NewReconcileService(
	ledger application.LedgerRepository,
	bookings application.BookingStore,
	notifier application.Notifier,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		ledger:   ledger,
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
	}
}

// ReconcileResult is what the webhook reports back upstream.
type ReconcileResult struct {
	Outcome          domain.Outcome
	AlreadyProcessed bool
}

// ProcessTransaction runs one transaction through the ledger gate and the
// reconciliation steps. Replayed deliveries of a settled id return the
// recorded outcome without touching the booking: at-least-once delivery in,
// at-most-once effect out.
func (s *ReconcileService) ProcessTransaction(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*ReconcileResult, error) {
	externalID := txn.ExternalID()

	existing, err := s.ledger.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("ledger lookup for %s: %w", externalID, err))
	}

	if existing != nil && existing.Status.IsTerminal() {
		s.logger.Info("duplicate delivery short-circuited",
			"external_id", externalID,
			"status", existing.Status,
		)
		metrics.ReplayShortCircuits.Inc()
		return &ReconcileResult{
			Outcome: domain.Outcome{
				Status:      existing.Status,
				BookingCode: existing.BookingCode,
				BookingID:   existing.BookingID,
				Reason:      existing.Reason,
			},
			AlreadyProcessed: true,
		}, nil
	}

	if _, err := s.ledger.UpsertProcessing(ctx, txn, raw); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeLedgerTerminal) {
			// A concurrent delivery settled the entry between our lookup
			// and the upsert. Re-read and report its outcome.
			return s.reportSettled(ctx, externalID, err)
		}
		return nil, application.NewInternalError(fmt.Errorf("ledger upsert for %s: %w", externalID, err))
	}

	outcome := s.reconcile(ctx, txn)

	if err := s.ledger.SetOutcome(ctx, externalID, outcome); err != nil {
		// The booking transition (if any) already happened and is
		// idempotent, so losing the audit write must not fail the
		// delivery. The sender will retry and hit the processing entry.
		s.logger.Error("failed to record ledger outcome",
			"external_id", externalID,
			"status", outcome.Status,
			"error", err,
		)
	}

	metrics.ReconcileOutcomes.WithLabelValues(string(outcome.Status)).Inc()

	s.logger.Info("transaction reconciled",
		"external_id", externalID,
		"gateway", txn.Gateway,
		"amount", txn.Amount,
		"status", outcome.Status,
		"booking_code", outcome.BookingCode,
	)

	return &ReconcileResult{Outcome: outcome}, nil
}

func (s *ReconcileService) reportSettled(ctx context.Context, externalID string, cause error) (*ReconcileResult, error) {
	entry, err := s.ledger.FindByExternalID(ctx, externalID)
	if err != nil || entry == nil {
		return nil, application.NewInternalError(fmt.Errorf("ledger conflict for %s: %w", externalID, cause))
	}
	return &ReconcileResult{
		Outcome: domain.Outcome{
			Status:      entry.Status,
			BookingCode: entry.BookingCode,
			BookingID:   entry.BookingID,
			Reason:      entry.Reason,
		},
		AlreadyProcessed: true,
	}, nil
}

// reconcile performs the business matching for a transaction that passed the
// ledger gate. It always produces a terminal outcome; infrastructure errors
// degrade to a retryable "error" entry rather than failing the delivery.
func (s *ReconcileService) reconcile(ctx context.Context, txn *domain.Transaction) domain.Outcome {
	if txn.Direction != domain.DirectionIn {
		return domain.Outcome{
			Status: domain.LedgerStatusSkipped,
			Reason: "outgoing transaction",
		}
	}

	if strings.TrimSpace(txn.Narrative) == "" {
		return domain.Outcome{
			Status: domain.LedgerStatusError,
			Reason: "empty narrative",
		}
	}

	code := domain.ExtractBookingCode(txn.Narrative)

	booking, err := s.bookings.FindByCode(ctx, code)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
			return domain.Outcome{
				Status:      domain.LedgerStatusError,
				BookingCode: code,
				Reason:      "booking not found",
			}
		}
		return domain.Outcome{
			Status:      domain.LedgerStatusError,
			BookingCode: code,
			Reason:      fmt.Sprintf("booking lookup failed: %v", err),
		}
	}

	if txn.Amount < booking.TotalAmount {
		return domain.Outcome{
			Status:      domain.LedgerStatusUnderpaid,
			BookingCode: code,
			BookingID:   &booking.ID,
			Reason: fmt.Sprintf("received %d of %d, short %d",
				txn.Amount, booking.TotalAmount, booking.TotalAmount-txn.Amount),
		}
	}

	if booking.IsSettled() {
		return domain.Outcome{
			Status:      domain.LedgerStatusSkipped,
			BookingCode: code,
			BookingID:   &booking.ID,
			Reason:      "already confirmed",
		}
	}

	if err := s.bookings.Confirm(ctx, booking.ID); err != nil {
		return domain.Outcome{
			Status:      domain.LedgerStatusError,
			BookingCode: code,
			BookingID:   &booking.ID,
			Reason:      fmt.Sprintf("confirm failed: %v", err),
		}
	}

	s.dispatchNotification(ctx, booking, txn)

	reason := ""
	if overage := txn.Amount - booking.TotalAmount; overage > 0 {
		reason = fmt.Sprintf("overpaid by %d", overage)
	}

	return domain.Outcome{
		Status:      domain.LedgerStatusSuccess,
		BookingCode: code,
		BookingID:   &booking.ID,
		Reason:      reason,
	}
}

// dispatchNotification is best-effort: the confirmation is the durable fact
// of record, the email is advisory.
func (s *ReconcileService) dispatchNotification(ctx context.Context, booking *domain.Booking, txn *domain.Transaction) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingConfirmed(ctx, booking, txn); err != nil {
		s.logger.Error("confirmation notification failed",
			"booking_code", booking.BookingCode,
			"external_id", txn.ExternalID(),
			"error", err,
		)
	}
}
