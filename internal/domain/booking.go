package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is owned by the booking domain; this core only reads
// status/total_amount and requests the pending -> confirmed transition.
type Booking struct {
	ID          int64
	BookingCode string
	Status      BookingStatus
	// TotalAmount is in whole currency units.
	TotalAmount   int64
	CustomerEmail string
	CreatedAt     time.Time
}

// IsSettled reports whether payment has already been credited to this
// booking through some path, so a matching transaction must not confirm
// it a second time.
func (b *Booking) IsSettled() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCheckedIn
}
