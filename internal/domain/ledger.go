package domain

import (
	"encoding/json"
	"time"
)

type LedgerStatus string

const (
	LedgerStatusProcessing LedgerStatus = "processing"
	LedgerStatusSuccess    LedgerStatus = "success"
	LedgerStatusUnderpaid  LedgerStatus = "underpaid"
	LedgerStatusSkipped    LedgerStatus = "skipped"
	LedgerStatusError      LedgerStatus = "error"
)

// IsTerminal reports whether the status permits no further reprocessing.
// An "error" entry is retryable by a later delivery of the same id.
func (s LedgerStatus) IsTerminal() bool {
	switch s {
	case LedgerStatusSuccess, LedgerStatusUnderpaid, LedgerStatusSkipped:
		return true
	}
	return false
}

// LedgerEntry records every external transaction id this core has seen and
// what became of it. One entry per external id; terminal entries are the
// at-most-once gate against duplicate deliveries.
type LedgerEntry struct {
	ExternalID  string
	Gateway     string
	Amount      int64
	Narrative   string
	Status      LedgerStatus
	BookingCode string
	BookingID   *int64
	Reason      string
	RawPayload  json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outcome is the terminal result of reconciling one transaction.
type Outcome struct {
	Status      LedgerStatus
	BookingCode string
	BookingID   *int64
	Reason      string
}
