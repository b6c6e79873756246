package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/domain"
)

// BookingStore reads bookings owned by the booking domain and applies the
// one transition this core is allowed to request.
type BookingStore struct {
	db *DB
}

func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{db: db}
}

var _ application.BookingStore = (*BookingStore)(nil)

func (s *BookingStore) FindByCode(ctx context.Context, code string) (*domain.Booking, error) {
	query := `
		SELECT id, booking_code, status, total_amount, COALESCE(customer_email, ''), created_at
		FROM bookings
		WHERE booking_code = $1 AND deleted_at IS NULL
	`

	var b domain.Booking
	err := s.db.Pool.QueryRow(ctx, query, code).Scan(
		&b.ID,
		&b.BookingCode,
		&b.Status,
		&b.TotalAmount,
		&b.CustomerEmail,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewBookingNotFoundError(code)
		}
		return nil, fmt.Errorf("find booking %s: %w", code, err)
	}

	return &b, nil
}

// Confirm applies pending -> confirmed. The status predicate makes the
// operation idempotent under concurrent deliveries: the second caller
// matches zero rows and sees the booking already settled.
func (s *BookingStore) Confirm(ctx context.Context, id int64) error {
	query := `
		UPDATE bookings
		SET status = 'confirmed', updated_at = now()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
	`

	tag, err := s.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("confirm booking %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: settled already is a no-op, anything else is a
	// transition the booking domain does not allow from here.
	var status domain.BookingStatus
	err = s.db.Pool.QueryRow(ctx,
		`SELECT status FROM bookings WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewBookingNotFoundError(fmt.Sprintf("id=%d", id))
		}
		return fmt.Errorf("confirm booking %d: %w", id, err)
	}

	if status == domain.BookingStatusConfirmed || status == domain.BookingStatusCheckedIn {
		return nil
	}
	return domain.NewInvalidTransitionError(status, domain.BookingStatusConfirmed)
}
