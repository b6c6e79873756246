package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/config"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/interfaces/rest"
)

// TransactionProcessor is the slice of the reconciliation service the
// webhook needs.
type TransactionProcessor interface {
	ProcessTransaction(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*services.ReconcileResult, error)
}

// WebhookHandler is the HTTP boundary for bank-feed payment notifications.
// Method, size, freshness and shape checks all short-circuit before the
// ledger is touched; authentication and rate limiting wrap this handler as
// middleware.
type WebhookHandler struct {
	processor TransactionProcessor
	cfg       config.WebhookConfig
	logger    *slog.Logger

	now func() time.Time
}

func NewWebhookHandler(processor TransactionProcessor, cfg config.WebhookConfig, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// transactionPayload mirrors the bank-feed gateway's delivery format.
type transactionPayload struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	TransferType    string `json:"transferType"`
	Content         string `json:"content"`
	TransferAmount  int64  `json:"transferAmount"`
	ReferenceCode   string `json:"referenceCode"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		rest.WriteError(w, &application.ServiceError{
			Code:       "METHOD_NOT_ALLOWED",
			Message:    "Notifications must be delivered with POST",
			HTTPStatus: http.StatusMethodNotAllowed,
		}, h.logger)
		return
	}

	// A declared oversized body is bounced before reading a byte of it;
	// an undeclared one trips MaxBytesReader below.
	if r.ContentLength > h.cfg.MaxBodyBytes {
		rest.WriteError(w, application.NewPayloadTooBigError(), h.logger)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rest.WriteError(w, application.NewPayloadTooBigError(), h.logger)
			return
		}
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	var payload transactionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	if payload.ID == 0 && payload.ReferenceCode == "" {
		rest.WriteError(w, application.NewInvalidInputError(
			domain.NewMissingRequiredFieldError("transaction id"),
		), h.logger)
		return
	}

	direction := domain.Direction(payload.TransferType)
	if direction != domain.DirectionIn && direction != domain.DirectionOut {
		rest.WriteError(w, application.NewInvalidInputError(
			fmt.Errorf("unrecognized transfer type %q", payload.TransferType),
		), h.logger)
		return
	}

	timestamp, err := parseTransactionDate(payload.TransactionDate)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	// Freshness bounds blunt replay of captured payloads. The ledger
	// remains the real idempotency mechanism; this is defense in depth.
	age := h.now().Sub(timestamp)
	if age > h.cfg.MaxTimestampAge || age < -h.cfg.MaxTimestampSkew {
		rest.WriteError(w, application.NewStaleTimestampError(), h.logger)
		return
	}

	txn := &domain.Transaction{
		ID:        payload.ID,
		Gateway:   payload.Gateway,
		Timestamp: timestamp,
		Direction: direction,
		Narrative: payload.Content,
		Amount:    payload.TransferAmount,
		RefCode:   payload.ReferenceCode,
	}

	result, err := h.processor.ProcessTransaction(r.Context(), txn, raw)
	if err != nil {
		h.logger.Error("transaction processing failed",
			"external_id", txn.ExternalID(),
			"error", err,
		)
		rest.WriteError(w, err, h.logger)
		return
	}

	writeCORSHeaders(w)
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		Success: envelopeSuccess(result),
		Result: &rest.WebhookResult{
			TransactionID: txn.ExternalID(),
			Status:        string(result.Outcome.Status),
			BookingCode:   result.Outcome.BookingCode,
			Reason:        result.Outcome.Reason,
		},
	}, h.logger)
}

// envelopeSuccess reports the delivery as handled. Underpayments and errors
// are flagged false so the sender's operators notice, but still ride a 200:
// retrying the same payload cannot fix them.
func envelopeSuccess(result *services.ReconcileResult) bool {
	if result.AlreadyProcessed {
		return true
	}
	switch result.Outcome.Status {
	case domain.LedgerStatusSuccess, domain.LedgerStatusSkipped:
		return true
	}
	return false
}

func parseTransactionDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.NewMissingRequiredFieldError("transactionDate")
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable transactionDate %q", value)
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")
}
