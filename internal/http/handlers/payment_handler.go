// Payment HTTP handlers.
//
//   - POST /payments/checkout-session     (book with card payment)
//   - GET  /payments/session/{sessionId}  (success page lookup)
//   - POST /webhooks/stripe               (provider events, mounted at root)
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/http/middleware"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// CheckoutSessionRequest is the JSON payload for a paid booking.
type CheckoutSessionRequest struct {
	DoctorID string `json:"doctorId" binding:"required,max=64" example:"0b8f7e0c-3a57-4b59-8d0e-5e4c1f9a2b31"`
	DateTime string `json:"dateTime" binding:"required,max=64" example:"2026-01-12T09:30:00Z"`
}

// CheckoutSessionResponse hands the browser over to hosted checkout.
type CheckoutSessionResponse struct {
	OK            bool   `json:"ok"`
	URL           string `json:"url"           example:"https://checkout.stripe.com/c/pay/cs_test_a1"`
	AppointmentID string `json:"appointmentId" example:"5b1f0a3e-2d4c-4e8b-9a61-0c7f3d2e1b9a"`
}

// SessionLookupResponse is what the success page shows after checkout.
type SessionLookupResponse struct {
	ID                string         `json:"id"`
	AppointmentStatus string         `json:"appointmentStatus" example:"CONFIRMED"`
	PaymentStatus     *string        `json:"paymentStatus"     example:"PAID"`
	PaymentMethod     *string        `json:"paymentMethod"     example:"CARD"`
	PaymentRef        *string        `json:"paymentRef"        example:"PAY-1767949200000-9f3a1c2e"`
	AmountCfa         int64          `json:"amountCfa"         example:"10000"`
	Currency          string         `json:"currency"          example:"xof"`
	DateTime          time.Time      `json:"dateTime"`
	Doctor            *domain.Doctor `json:"doctor,omitempty"`
}

// WebhookAck acknowledges a verified provider event.
type WebhookAck struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty" example:"applied"`
}

// CreateCheckoutSession godoc
// @ID          createCheckoutSession
// @Summary     Book an appointment with card payment
// @Description Creates a PENDING booking and a hosted checkout session. The booking becomes PAID and CONFIRMED when the provider reports completion.
// @Tags        Payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                           false "Client retry key"
// @Param       body             body    handlers.CheckoutSessionRequest  true  "Booking"
// @Success     200  {object}  handlers.CheckoutSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid input"
// @Failure     404  {object}  handlers.ErrorResponse "Doctor not found"
// @Failure     409  {object}  handlers.ErrorResponse "Slot taken"
// @Failure     502  {object}  handlers.ErrorResponse "Payment provider error"
// @Failure     503  {object}  handlers.ErrorResponse "Payments not configured"
// @Router      /payments/checkout-session [post]
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	res, err := h.create(c, CreateAppointmentRequest{
		DoctorID:        req.DoctorID,
		DateTime:        req.DateTime,
		PaymentRequired: true,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CheckoutSessionResponse{OK: true, URL: res.CheckoutURL, AppointmentID: res.Appointment.ID})
}

// GetCheckoutSession godoc
// @ID          getCheckoutSession
// @Summary     Look up my booking by checkout session
// @Tags        Payments
// @Produce     json
// @Security    BearerAuth
// @Param       sessionId  path      string  true  "Checkout session id"  example(cs_test_a1)
// @Success     200        {object}  handlers.SessionLookupResponse
// @Failure     404        {object}  handlers.ErrorResponse "Not found"
// @Router      /payments/session/{sessionId} [get]
func (h *Handlers) GetCheckoutSession(c *gin.Context) {
	a, err := h.apptSvc.GetByCheckoutSession(c.Request.Context(), c.Param("sessionId"), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SessionLookupResponse{
		ID:                a.ID,
		AppointmentStatus: a.Status,
		PaymentStatus:     a.PaymentStatus,
		PaymentMethod:     a.PaymentMethod,
		PaymentRef:        a.PaymentRef,
		AmountCfa:         a.Amount,
		Currency:          a.Currency,
		DateTime:          a.DateTime,
		Doctor:            a.Doctor,
	})
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Payment provider webhook
// @Description Verifies the signature over the raw body. Every verified event is acknowledged, including duplicates and unrelated types.
// @Tags        Payments
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature  header  string  true  "Provider signature"
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.ErrorResponse "Invalid signature or payload"
// @Failure     503  {object}  handlers.ErrorResponse "Webhook not configured"
// @Router      /webhooks/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read body")
		return
	}
	out, err := h.apptSvc.HandlePaymentEvent(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("event_id", out.EventID).
		Str("event_type", out.Type).
		Str("appointment_id", out.AppointmentID).
		Str("outcome", out.Outcome).
		Msg("payment event")
	ok(c, http.StatusOK, WebhookAck{Received: true, Outcome: out.Outcome})
}
