package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yenharbor/payment-core/internal/domain"
)

// LedgerRepository is the port for the idempotency ledger. Callers must
// consult FindByExternalID before any side-effecting work and treat a
// terminal entry as "already handled".
type LedgerRepository interface {
	// FindByExternalID returns nil, nil when the id has never been seen.
	FindByExternalID(ctx context.Context, externalID string) (*domain.LedgerEntry, error)

	// UpsertProcessing creates or resets a non-terminal entry to
	// "processing", recording the raw payload for audit. It returns
	// a terminal-conflict error if a concurrent delivery settled the
	// entry first.
	UpsertProcessing(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*domain.LedgerEntry, error)

	// SetOutcome writes the terminal status for an entry. Entries already
	// terminal are left untouched.
	SetOutcome(ctx context.Context, externalID string, outcome domain.Outcome) error
}

// BookingStore is the port to the booking domain. This core reads bookings
// and requests exactly one transition.
type BookingStore interface {
	// FindByCode looks a booking up among non-deleted rows.
	FindByCode(ctx context.Context, code string) (*domain.Booking, error)

	// Confirm transitions pending -> confirmed. Confirming a booking that
	// is already confirmed is a no-op, which is the safety net under
	// near-simultaneous duplicate deliveries.
	Confirm(ctx context.Context, id int64) error
}

// AttemptRepository tracks outbound redirect-payment attempts so the status
// worker can chase ones that never produced a return or a webhook.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindUnresolved(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentAttempt, error)
	MarkResolved(ctx context.Context, merchTxnRef string, result string) error
}

// Notifier dispatches customer-facing notifications. Failures are advisory
// and never roll back a confirmation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *domain.Booking, txn *domain.Transaction) error
}

// StatusQuerier is the port for the gateway's pull-based status endpoint.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, merchTxnRef string) (map[string]string, error)
	VerifyResponse(params map[string]string) bool
}

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is the per-source admission gate in front of the webhook.
// Implementations may be process-local or backed by a shared store.
type RateLimiter interface {
	Allow(ctx context.Context, key string) Decision
}
