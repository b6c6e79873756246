package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/domain"
)

type AttemptRepository struct {
	db *DB
}

func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

var _ application.AttemptRepository = (*AttemptRepository)(nil)

func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (merch_txn_ref, booking_id, booking_code, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', now(), now())
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.MerchTxnRef,
		attempt.BookingID,
		attempt.BookingCode,
		attempt.Amount,
	)
	if err != nil {
		return fmt.Errorf("create payment attempt %s: %w", attempt.MerchTxnRef, err)
	}

	return nil
}

func (r *AttemptRepository) FindUnresolved(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentAttempt, error) {
	query := `
		SELECT merch_txn_ref, booking_id, booking_code, amount, status, COALESCE(result, ''), created_at, updated_at
		FROM payment_attempts
		WHERE status = 'pending' AND created_at < now() - ($1 * interval '1 second')
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, olderThan.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("find unresolved attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		err := rows.Scan(
			&a.MerchTxnRef,
			&a.BookingID,
			&a.BookingCode,
			&a.Amount,
			&a.Status,
			&a.Result,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment attempts: %w", err)
	}

	return attempts, nil
}

func (r *AttemptRepository) MarkResolved(ctx context.Context, merchTxnRef string, result string) error {
	query := `
		UPDATE payment_attempts
		SET status = 'resolved', result = $2, updated_at = now()
		WHERE merch_txn_ref = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, merchTxnRef, result)
	if err != nil {
		return fmt.Errorf("resolve payment attempt %s: %w", merchTxnRef, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewAttemptNotFoundError(merchTxnRef)
	}

	return nil
}
