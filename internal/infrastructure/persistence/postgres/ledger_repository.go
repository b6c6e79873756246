package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/domain"
)

type LedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ application.LedgerRepository = (*LedgerRepository)(nil)

const terminalStatuses = `'success', 'underpaid', 'skipped'`

func (r *LedgerRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.LedgerEntry, error) {
	query := `
		SELECT external_id, gateway, amount, narrative, status,
		       COALESCE(booking_code, ''), booking_id, COALESCE(reason, ''),
		       raw_payload, created_at, updated_at
		FROM payment_ledger
		WHERE external_id = $1
	`

	var e domain.LedgerEntry
	err := r.db.Pool.QueryRow(ctx, query, externalID).Scan(
		&e.ExternalID,
		&e.Gateway,
		&e.Amount,
		&e.Narrative,
		&e.Status,
		&e.BookingCode,
		&e.BookingID,
		&e.Reason,
		&e.RawPayload,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find ledger entry %s: %w", externalID, err)
	}

	return &e, nil
}

// UpsertProcessing creates or resets the entry for a transaction id to
// "processing". The conditional conflict clause is the storage-level guard
// against the lookup/upsert race: a terminal row is never overwritten, and
// losing the race surfaces as a terminal-conflict error.
func (r *LedgerRepository) UpsertProcessing(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*domain.LedgerEntry, error) {
	query := `
		INSERT INTO payment_ledger (external_id, gateway, amount, narrative, status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'processing', $5, now(), now())
		ON CONFLICT (external_id) DO UPDATE
		SET status = 'processing',
		    gateway = EXCLUDED.gateway,
		    amount = EXCLUDED.amount,
		    narrative = EXCLUDED.narrative,
		    raw_payload = EXCLUDED.raw_payload,
		    updated_at = now()
		WHERE payment_ledger.status NOT IN (` + terminalStatuses + `)
		RETURNING external_id, gateway, amount, narrative, status,
		          COALESCE(booking_code, ''), booking_id, COALESCE(reason, ''),
		          raw_payload, created_at, updated_at
	`

	externalID := txn.ExternalID()

	var e domain.LedgerEntry
	err := r.db.Pool.QueryRow(ctx, query,
		externalID, txn.Gateway, txn.Amount, txn.Narrative, raw,
	).Scan(
		&e.ExternalID,
		&e.Gateway,
		&e.Amount,
		&e.Narrative,
		&e.Status,
		&e.BookingCode,
		&e.BookingID,
		&e.Reason,
		&e.RawPayload,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict clause filtered the row out: it is terminal.
			status := domain.LedgerStatusSuccess
			if existing, lookupErr := r.FindByExternalID(ctx, externalID); lookupErr == nil && existing != nil {
				status = existing.Status
			}
			return nil, domain.NewLedgerTerminalError(externalID, status)
		}
		return nil, fmt.Errorf("upsert ledger entry %s: %w", externalID, err)
	}

	return &e, nil
}

func (r *LedgerRepository) SetOutcome(ctx context.Context, externalID string, outcome domain.Outcome) error {
	query := `
		UPDATE payment_ledger
		SET status = $2, booking_code = NULLIF($3, ''), booking_id = $4,
		    reason = NULLIF($5, ''), updated_at = now()
		WHERE external_id = $1
		  AND status NOT IN (` + terminalStatuses + `)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		externalID,
		string(outcome.Status),
		outcome.BookingCode,
		outcome.BookingID,
		outcome.Reason,
	)
	if err != nil {
		return fmt.Errorf("set ledger outcome %s: %w", externalID, err)
	}

	return nil
}
