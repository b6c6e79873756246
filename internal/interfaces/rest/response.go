package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/metrics"
)

// WebhookResult is the business outcome reported for one transaction.
// Upstream senders key their retry behavior off the HTTP status, not this
// body, so every settled business case ships with a 200.
type WebhookResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	BookingCode   string `json:"booking_code,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Envelope struct {
	Success bool           `json:"success"`
	Result  *WebhookResult `json:"result,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	metrics.WebhookRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError maps a ServiceError to its transport response; anything else
// degrades to a 500.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		svcErr = application.NewInternalError(err)
	}
	WriteJSON(w, svcErr.HTTPStatus, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    svcErr.Code,
			Message: svcErr.Message,
		},
	}, logger)
}
