package domain

import (
	"strconv"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transaction is a payment notification as delivered by a bank-feed gateway.
// It is immutable once received; the core only reads it.
type Transaction struct {
	ID        int64
	Gateway   string
	Timestamp time.Time
	Direction Direction
	Narrative string
	// Amount is in whole currency units.
	Amount  int64
	RefCode string
}

// ExternalID is the deduplication key for a transaction: the gateway
// reference code when present, otherwise the numeric id.
func (t *Transaction) ExternalID() string {
	if t.RefCode != "" {
		return t.RefCode
	}
	return strconv.FormatInt(t.ID, 10)
}
