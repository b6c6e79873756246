package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/infrastructure/paygate"
)

// URLBuilder is the slice of the gateway client the checkout path needs.
type URLBuilder interface {
	BuildPaymentURL(req paygate.PaymentURLRequest) (string, error)
}

// PaymentURLService creates signed redirect URLs for checkout and records
// each attempt so the status worker can chase silent ones later.
type PaymentURLService struct {
	gate     URLBuilder
	attempts application.AttemptRepository
	logger   *slog.Logger
}

func NewPaymentURLService(gate URLBuilder, attempts application.AttemptRepository, logger *slog.Logger) *PaymentURLService {
	return &PaymentURLService{
		gate:     gate,
		attempts: attempts,
		logger:   logger,
	}
}

// CheckoutRequest carries the per-request pieces the booking domain knows.
type CheckoutRequest struct {
	ReturnURL     string
	ClientIP      string
	Locale        string
	CallbackURL   string
	CustomerPhone string
	CardList      string
}

// CreatePaymentURL builds a unique merchant reference for the booking, signs
// the redirect URL and persists the attempt. The reference embeds the
// booking code so gateway-side records stay greppable by operators.
func (s *PaymentURLService) CreatePaymentURL(ctx context.Context, booking *domain.Booking, req CheckoutRequest) (string, error) {
	merchTxnRef := fmt.Sprintf("%s-%s", booking.BookingCode, uuid.New().String()[:8])

	redirectURL, err := s.gate.BuildPaymentURL(paygate.PaymentURLRequest{
		Amount:        booking.TotalAmount,
		MerchTxnRef:   merchTxnRef,
		OrderInfo:     "Booking " + booking.BookingCode,
		ReturnURL:     req.ReturnURL,
		TicketNo:      req.ClientIP,
		Locale:        req.Locale,
		CallbackURL:   req.CallbackURL,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: booking.CustomerEmail,
		CardList:      req.CardList,
	})
	if err != nil {
		return "", err
	}

	attempt := &domain.PaymentAttempt{
		MerchTxnRef: merchTxnRef,
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		Amount:      booking.TotalAmount,
		Status:      domain.AttemptStatusPending,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return "", application.NewInternalError(fmt.Errorf("record payment attempt %s: %w", merchTxnRef, err))
	}

	s.logger.Info("payment attempt created",
		"merch_txn_ref", merchTxnRef,
		"booking_code", booking.BookingCode,
		"amount", booking.TotalAmount,
	)

	return redirectURL, nil
}
