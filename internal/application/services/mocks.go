package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yenharbor/payment-core/internal/domain"
)

// MockLedgerRepository
type MockLedgerRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry

	FindByExternalIDFn func(ctx context.Context, externalID string) (*domain.LedgerEntry, error)
	UpsertProcessingFn func(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*domain.LedgerEntry, error)
	SetOutcomeFn       func(ctx context.Context, externalID string, outcome domain.Outcome) error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{entries: make(map[string]*domain.LedgerEntry)}
}

func (m *MockLedgerRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindByExternalIDFn != nil {
		return m.FindByExternalIDFn(ctx, externalID)
	}
	if e, ok := m.entries[externalID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (m *MockLedgerRepository) UpsertProcessing(ctx context.Context, txn *domain.Transaction, raw json.RawMessage) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertProcessingFn != nil {
		return m.UpsertProcessingFn(ctx, txn, raw)
	}
	externalID := txn.ExternalID()
	if e, ok := m.entries[externalID]; ok && e.Status.IsTerminal() {
		return nil, domain.NewLedgerTerminalError(externalID, e.Status)
	}
	entry := &domain.LedgerEntry{
		ExternalID: externalID,
		Gateway:    txn.Gateway,
		Amount:     txn.Amount,
		Narrative:  txn.Narrative,
		Status:     domain.LedgerStatusProcessing,
		RawPayload: raw,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.entries[externalID] = entry
	copied := *entry
	return &copied, nil
}

func (m *MockLedgerRepository) SetOutcome(ctx context.Context, externalID string, outcome domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetOutcomeFn != nil {
		return m.SetOutcomeFn(ctx, externalID, outcome)
	}
	e, ok := m.entries[externalID]
	if !ok || e.Status.IsTerminal() {
		return nil
	}
	e.Status = outcome.Status
	e.BookingCode = outcome.BookingCode
	e.BookingID = outcome.BookingID
	e.Reason = outcome.Reason
	e.UpdatedAt = time.Now()
	return nil
}

// Entry returns a copy of the stored entry for assertions.
func (m *MockLedgerRepository) Entry(externalID string) *domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[externalID]; ok {
		copied := *e
		return &copied
	}
	return nil
}

// MockBookingStore
type MockBookingStore struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
	lookups  int
	confirms int

	FindByCodeFn func(ctx context.Context, code string) (*domain.Booking, error)
	ConfirmFn    func(ctx context.Context, id int64) error
}

func NewMockBookingStore(bookings ...*domain.Booking) *MockBookingStore {
	m := &MockBookingStore{bookings: make(map[string]*domain.Booking)}
	for _, b := range bookings {
		m.bookings[b.BookingCode] = b
	}
	return m
}

func (m *MockBookingStore) FindByCode(ctx context.Context, code string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.FindByCodeFn != nil {
		return m.FindByCodeFn(ctx, code)
	}
	if b, ok := m.bookings[code]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, domain.NewBookingNotFoundError(code)
}

func (m *MockBookingStore) Confirm(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirms++
	if m.ConfirmFn != nil {
		return m.ConfirmFn(ctx, id)
	}
	for _, b := range m.bookings {
		if b.ID == id {
			if b.Status == domain.BookingStatusPending {
				b.Status = domain.BookingStatusConfirmed
			}
			return nil
		}
	}
	return domain.NewBookingNotFoundError("")
}

func (m *MockBookingStore) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}

func (m *MockBookingStore) Confirms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.confirms
}

func (m *MockBookingStore) Booking(code string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.bookings[code]; ok {
		copied := *b
		return &copied
	}
	return nil
}

// MockNotifier
type MockNotifier struct {
	mu    sync.Mutex
	calls int

	BookingConfirmedFn func(ctx context.Context, booking *domain.Booking, txn *domain.Transaction) error
}

func (m *MockNotifier) BookingConfirmed(ctx context.Context, booking *domain.Booking, txn *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.BookingConfirmedFn != nil {
		return m.BookingConfirmedFn(ctx, booking, txn)
	}
	return nil
}

func (m *MockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockAttemptRepository
type MockAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]*domain.PaymentAttempt

	CreateFn         func(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindUnresolvedFn func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentAttempt, error)
	MarkResolvedFn   func(ctx context.Context, merchTxnRef string, result string) error
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{attempts: make(map[string]*domain.PaymentAttempt)}
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, attempt)
	}
	copied := *attempt
	copied.CreatedAt = time.Now()
	m.attempts[attempt.MerchTxnRef] = &copied
	return nil
}

func (m *MockAttemptRepository) FindUnresolved(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindUnresolvedFn != nil {
		return m.FindUnresolvedFn(ctx, olderThan, limit)
	}
	cutoff := time.Now().Add(-olderThan)
	var out []*domain.PaymentAttempt
	for _, a := range m.attempts {
		if a.Status == domain.AttemptStatusPending && a.CreatedAt.Before(cutoff) {
			copied := *a
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockAttemptRepository) MarkResolved(ctx context.Context, merchTxnRef string, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkResolvedFn != nil {
		return m.MarkResolvedFn(ctx, merchTxnRef, result)
	}
	a, ok := m.attempts[merchTxnRef]
	if !ok {
		return domain.NewAttemptNotFoundError(merchTxnRef)
	}
	a.Status = domain.AttemptStatusResolved
	a.Result = result
	return nil
}

func (m *MockAttemptRepository) Attempt(merchTxnRef string) *domain.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attempts[merchTxnRef]; ok {
		copied := *a
		return &copied
	}
	return nil
}

// SeedAttempt inserts an attempt with an explicit creation time.
func (m *MockAttemptRepository) SeedAttempt(a *domain.PaymentAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *a
	m.attempts[a.MerchTxnRef] = &copied
}
