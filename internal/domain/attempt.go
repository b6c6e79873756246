package domain

import "time"

type AttemptStatus string

const (
	AttemptStatusPending  AttemptStatus = "pending"
	AttemptStatusResolved AttemptStatus = "resolved"
)

// PaymentAttempt records one outbound redirect to the payment gateway. If
// neither the customer's return nor a webhook settles it, the status worker
// falls back to querying the gateway by MerchTxnRef.
type PaymentAttempt struct {
	MerchTxnRef string
	BookingID   int64
	BookingCode string
	// Amount is in whole currency units.
	Amount    int64
	Status    AttemptStatus
	Result    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
