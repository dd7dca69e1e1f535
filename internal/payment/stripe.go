package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only provider event that changes state.
const EventCheckoutCompleted = "checkout.session.completed"

// Metadata keys attached to every checkout session.
const (
	MetaAppointmentID = "appointmentId"
	MetaPaymentRef    = "paymentRef"
)

var (
	// ErrNotConfigured is returned when the gateway lacks credentials for
	// the requested operation.
	ErrNotConfigured = errors.New("payment provider not configured")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CheckoutRequest describes one consultation to be charged.
type CheckoutRequest struct {
	AppointmentID string
	PaymentRef    string
	CustomerEmail string
	ProductName   string
	Description   string
	Amount        int64 // major units
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider handle returned to the patient.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified provider event reduced to the fields the booking
// flow reads. Session fields are only populated for checkout events.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	AppointmentID   string
	PaymentRef      string
	// DecodeError is set when the signature verified but the session
	// object could not be decoded. The event is still returned so it can
	// be acknowledged and recorded.
	DecodeError string
}

// Gateway is the payment collaborator consumed by the booking services.
type Gateway interface {
	Configured() bool
	WebhookConfigured() bool
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// Option customizes a StripeGateway.
type Option func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithBackendURL points API calls at a different base URL (tests, mocks).
func WithBackendURL(url string) Option {
	return func(o *stripeOptions) {
		cfg := &stripe.BackendConfig{
			URL:               stripe.String(url),
			LeveledLogger:     zerologLeveled{},
			MaxNetworkRetries: stripe.Int64(0),
		}
		o.backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		}
	}
}

// NewStripeGateway builds a gateway. Either secret may be empty; the
// corresponding operation then fails with ErrNotConfigured.
func NewStripeGateway(secretKey, webhookSecret string, opts ...Option) *StripeGateway {
	o := stripeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	g := &StripeGateway{webhookSecret: strings.TrimSpace(webhookSecret)}
	if key := strings.TrimSpace(secretKey); key != "" {
		if o.backends == nil {
			cfg := &stripe.BackendConfig{LeveledLogger: zerologLeveled{}}
			o.backends = &stripe.Backends{
				API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
				Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
				Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
			}
		}
		g.api = client.New(key, o.backends)
	}
	return g
}

// Configured reports whether checkout sessions can be created.
func (g *StripeGateway) Configured() bool { return g != nil && g.api != nil }

// WebhookConfigured reports whether webhook payloads can be verified.
func (g *StripeGateway) WebhookConfigured() bool { return g != nil && g.webhookSecret != "" }

// CreateCheckoutSession opens a one-item hosted checkout in payment mode.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}
	currency := strings.ToLower(req.Currency)
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(UnitAmount(req.Amount, currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.ProductName),
					Description: optional(req.Description),
				},
			},
		}},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(MetaAppointmentID, req.AppointmentID)
	params.AddMetadata(MetaPaymentRef, req.PaymentRef)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if !g.WebhookConfigured() {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || ev.Data == nil {
		return out, nil
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		out.DecodeError = err.Error()
		return out, nil
	}
	out.SessionID = s.ID
	out.AppointmentID = s.Metadata[MetaAppointmentID]
	out.PaymentRef = s.Metadata[MetaPaymentRef]
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return stripe.String(s)
}

// zerologLeveled routes stripe-go client logs through the global logger.
type zerologLeveled struct{}

func (zerologLeveled) Debugf(format string, v ...interface{}) {
	log.Debug().Str("component", "stripe").Msgf(format, v...)
}

func (zerologLeveled) Infof(format string, v ...interface{}) {
	log.Debug().Str("component", "stripe").Msgf(format, v...)
}

func (zerologLeveled) Warnf(format string, v ...interface{}) {
	log.Warn().Str("component", "stripe").Msgf(format, v...)
}

func (zerologLeveled) Errorf(format string, v ...interface{}) {
	log.Error().Str("component", "stripe").Msgf(format, v...)
}
