package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/config"
	"github.com/yenharbor/payment-core/internal/domain"
)

// Client dispatches confirmation emails through the storefront's mailer
// service. Callers treat failures as advisory.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.NotifyConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ application.Notifier = (*Client)(nil)

type bookingConfirmedRequest struct {
	BookingCode   string `json:"booking_code"`
	CustomerEmail string `json:"customer_email"`
	Amount        int64  `json:"amount"`
	Gateway       string `json:"gateway"`
	TransactionID string `json:"transaction_id"`
}

func (c *Client) BookingConfirmed(ctx context.Context, booking *domain.Booking, txn *domain.Transaction) error {
	if c.baseURL == "" {
		// Notification delivery disabled; the confirmation itself is
		// already durable.
		return nil
	}

	payload := bookingConfirmedRequest{
		BookingCode:   booking.BookingCode,
		CustomerEmail: booking.CustomerEmail,
		Amount:        txn.Amount,
		Gateway:       txn.Gateway,
		TransactionID: txn.ExternalID(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling json: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/emails/booking-confirmed", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailer returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
