package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/infrastructure/persistence/postgres"
)

// InsertBooking seeds a pending booking and returns it with its generated id.
func InsertBooking(t *testing.T, ctx context.Context, db *postgres.DB, code string, amount int64) *domain.Booking {
	booking := &domain.Booking{
		BookingCode:   code,
		Status:        domain.BookingStatusPending,
		TotalAmount:   amount,
		CustomerEmail: "guest@example.com",
	}

	err := db.Pool.QueryRow(ctx,
		`INSERT INTO bookings (booking_code, status, total_amount, customer_email)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		booking.BookingCode, booking.Status, booking.TotalAmount, booking.CustomerEmail,
	).Scan(&booking.ID)
	require.NoError(t, err)

	return booking
}

// InsertBookingWithStatus seeds a booking already past pending.
func InsertBookingWithStatus(t *testing.T, ctx context.Context, db *postgres.DB, code string, amount int64, status domain.BookingStatus) *domain.Booking {
	booking := InsertBooking(t, ctx, db, code, amount)
	_, err := db.Pool.Exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, status, booking.ID)
	require.NoError(t, err)
	booking.Status = status
	return booking
}

// InsertStaleAttempt seeds a pending payment attempt whose creation time is
// backdated far enough for the status worker to pick it up.
func InsertStaleAttempt(t *testing.T, ctx context.Context, db *postgres.DB, booking *domain.Booking, age time.Duration) *domain.PaymentAttempt {
	attempt := &domain.PaymentAttempt{
		MerchTxnRef: booking.BookingCode + "-" + uuid.New().String()[:8],
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		Amount:      booking.TotalAmount,
		Status:      domain.AttemptStatusPending,
	}

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO payment_attempts (merch_txn_ref, booking_id, booking_code, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, now() - ($6 * interval '1 second'))`,
		attempt.MerchTxnRef, attempt.BookingID, attempt.BookingCode,
		attempt.Amount, attempt.Status, age.Seconds(),
	)
	require.NoError(t, err)

	return attempt
}

// NewBookingCode generates a code in the shape the narrative parser expects:
// a two-letter prefix followed by fourteen alphanumerics.
func NewBookingCode() string {
	suffix := uuid.New().String()
	code := "YH"
	for _, r := range suffix {
		if r == '-' {
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		code += string(r)
		if len(code) == 16 {
			break
		}
	}
	return code
}

// NewInboundTransaction builds a bank-feed transaction whose narrative
// carries the given booking code.
func NewInboundTransaction(code string, amount int64) *domain.Transaction {
	return &domain.Transaction{
		Gateway:   "Vietcombank",
		Timestamp: time.Now(),
		Direction: domain.DirectionIn,
		Narrative: fmt.Sprintf("%s thanh toan dat phong", code),
		Amount:    amount,
		RefCode:   "FT" + uuid.New().String()[:10],
	}
}
