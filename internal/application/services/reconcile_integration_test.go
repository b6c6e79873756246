package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/application/services/testhelpers"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/infrastructure/persistence/postgres"
)

// End-to-end reconciliation against a real database: the ledger's conflict
// handling and the booking store's guarded transition are exactly the parts
// mocks cannot vouch for.
type ReconcileIntegrationTestSuite struct {
	suite.Suite
	testDB   *testhelpers.TestDatabase
	ledger   *postgres.LedgerRepository
	bookings *postgres.BookingStore
	notifier *services.MockNotifier
	service  *services.ReconcileService
}

func TestReconcileIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}
	suite.Run(t, new(ReconcileIntegrationTestSuite))
}

func (s *ReconcileIntegrationTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	s.ledger = postgres.NewLedgerRepository(s.testDB.DB)
	s.bookings = postgres.NewBookingStore(s.testDB.DB)
}

func (s *ReconcileIntegrationTestSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *ReconcileIntegrationTestSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
	s.notifier = &services.MockNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = services.NewReconcileService(s.ledger, s.bookings, s.notifier, logger)
}

func (s *ReconcileIntegrationTestSuite) Test_FullMatchConfirmsBooking() {
	ctx := context.Background()
	code := testhelpers.NewBookingCode()
	booking := testhelpers.InsertBooking(s.T(), ctx, s.testDB.DB, code, 1500000)
	txn := testhelpers.NewInboundTransaction(code, 1500000)

	result, err := s.service.ProcessTransaction(ctx, txn, json.RawMessage(`{"seen": true}`))
	s.Require().NoError(err)
	s.Equal(domain.LedgerStatusSuccess, result.Outcome.Status)
	s.False(result.AlreadyProcessed)

	confirmed, err := s.bookings.FindByCode(ctx, code)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusConfirmed, confirmed.Status)

	entry, err := s.ledger.FindByExternalID(ctx, txn.ExternalID())
	s.Require().NoError(err)
	s.Equal(domain.LedgerStatusSuccess, entry.Status)
	s.Equal(code, entry.BookingCode)
	s.Require().NotNil(entry.BookingID)
	s.Equal(booking.ID, *entry.BookingID)
}

func (s *ReconcileIntegrationTestSuite) Test_ReplayReturnsRecordedOutcome() {
	ctx := context.Background()
	code := testhelpers.NewBookingCode()
	testhelpers.InsertBooking(s.T(), ctx, s.testDB.DB, code, 1500000)
	txn := testhelpers.NewInboundTransaction(code, 1500000)

	first, err := s.service.ProcessTransaction(ctx, txn, nil)
	s.Require().NoError(err)
	s.False(first.AlreadyProcessed)

	for i := 0; i < 3; i++ {
		replay, err := s.service.ProcessTransaction(ctx, txn, nil)
		s.Require().NoError(err)
		s.True(replay.AlreadyProcessed)
		s.Equal(domain.LedgerStatusSuccess, replay.Outcome.Status)
	}

	s.Equal(1, s.notifier.Calls(), "replays must not renotify")
}

func (s *ReconcileIntegrationTestSuite) Test_UnderpaymentDoesNotConfirm() {
	ctx := context.Background()
	code := testhelpers.NewBookingCode()
	testhelpers.InsertBooking(s.T(), ctx, s.testDB.DB, code, 1500000)
	txn := testhelpers.NewInboundTransaction(code, 1000000)

	result, err := s.service.ProcessTransaction(ctx, txn, nil)
	s.Require().NoError(err)
	s.Equal(domain.LedgerStatusUnderpaid, result.Outcome.Status)
	s.Contains(result.Outcome.Reason, "short 500000")

	booking, err := s.bookings.FindByCode(ctx, code)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPending, booking.Status)
}

func (s *ReconcileIntegrationTestSuite) Test_UnknownBookingCodeIsRecorded() {
	ctx := context.Background()
	code := testhelpers.NewBookingCode()
	txn := testhelpers.NewInboundTransaction(code, 1500000)

	result, err := s.service.ProcessTransaction(ctx, txn, nil)
	s.Require().NoError(err)
	s.Equal(domain.LedgerStatusError, result.Outcome.Status)

	entry, err := s.ledger.FindByExternalID(ctx, txn.ExternalID())
	s.Require().NoError(err)
	s.Equal(code, entry.BookingCode, "extracted code is kept for operator lookup")
}

// Two goroutines race the same delivery. The booking must end up confirmed
// exactly once and both callers must report success; the notification is
// best-effort and may fire from either side.
func (s *ReconcileIntegrationTestSuite) Test_ConcurrentDuplicateDeliveries() {
	ctx := context.Background()
	code := testhelpers.NewBookingCode()
	testhelpers.InsertBooking(s.T(), ctx, s.testDB.DB, code, 1500000)
	txn := testhelpers.NewInboundTransaction(code, 1500000)

	var wg sync.WaitGroup
	results := make([]*services.ReconcileResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.service.ProcessTransaction(ctx, txn, nil)
		}()
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		s.Require().NoError(errs[i])
		s.Equal(domain.LedgerStatusSuccess, results[i].Outcome.Status)
	}

	booking, err := s.bookings.FindByCode(ctx, code)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusConfirmed, booking.Status)
	s.GreaterOrEqual(s.notifier.Calls(), 1)

	entry, err := s.ledger.FindByExternalID(ctx, txn.ExternalID())
	s.Require().NoError(err)
	s.Equal(domain.LedgerStatusSuccess, entry.Status)
}
