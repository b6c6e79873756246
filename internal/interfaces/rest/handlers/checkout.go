package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/domain"
	"github.com/yenharbor/payment-core/internal/interfaces/rest"
	"github.com/yenharbor/payment-core/internal/interfaces/rest/middleware"
)

// PaymentURLCreator is the slice of the checkout service this handler needs.
type PaymentURLCreator interface {
	CreatePaymentURL(ctx context.Context, booking *domain.Booking, req services.CheckoutRequest) (string, error)
}

// CheckoutHandler turns a booking into a signed gateway redirect URL. It is
// called by the storefront, not by the gateway, so it shares none of the
// webhook's freshness machinery.
type CheckoutHandler struct {
	bookings application.BookingStore
	payments PaymentURLCreator
	logger   *slog.Logger
}

func NewCheckoutHandler(bookings application.BookingStore, payments PaymentURLCreator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		bookings: bookings,
		payments: payments,
		logger:   logger,
	}
}

type checkoutRequest struct {
	BookingCode   string `json:"booking_code"`
	ReturnURL     string `json:"return_url"`
	Locale        string `json:"locale,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type checkoutResponse struct {
	BookingCode string `json:"booking_code"`
	PaymentURL  string `json:"payment_url"`
}

func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		rest.WriteError(w, &application.ServiceError{
			Code:       "METHOD_NOT_ALLOWED",
			Message:    "Checkout must be requested with POST",
			HTTPStatus: http.StatusMethodNotAllowed,
		}, h.logger)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if req.BookingCode == "" {
		rest.WriteError(w, application.NewInvalidInputError(
			domain.NewMissingRequiredFieldError("booking_code"),
		), h.logger)
		return
	}
	if req.ReturnURL == "" {
		rest.WriteError(w, application.NewInvalidInputError(
			domain.NewMissingRequiredFieldError("return_url"),
		), h.logger)
		return
	}

	booking, err := h.bookings.FindByCode(r.Context(), req.BookingCode)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
			rest.WriteError(w, application.NewNotFoundError("booking", err), h.logger)
			return
		}
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	if booking.IsSettled() {
		rest.WriteError(w, &application.ServiceError{
			Code:       "ALREADY_PAID",
			Message:    "Booking is already paid",
			HTTPStatus: http.StatusConflict,
		}, h.logger)
		return
	}

	paymentURL, err := h.payments.CreatePaymentURL(r.Context(), booking, services.CheckoutRequest{
		ReturnURL:     req.ReturnURL,
		ClientIP:      middleware.ClientIP(r),
		Locale:        req.Locale,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, checkoutResponse{
		BookingCode: booking.BookingCode,
		PaymentURL:  paymentURL,
	}, h.logger)
}
