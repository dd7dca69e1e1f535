// Package services – AppointmentService
//
// AppointmentService is the lifecycle coordinator of an appointment. It owns
// two independent state dimensions on the appointment row, confirmation
// (PENDING -> CONFIRMED | CANCELLED) and payment (PENDING -> PAID), and
// coordinates them with the payment provider's webhook and with patient
// notifications.
//
// State changes are conditional updates in the store, so concurrent or
// repeated requests (double clicks, webhook redeliveries) resolve to a
// single winner. Notifications and event publishing happen after commit
// and never fail the operation.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/events"
	"github.com/allodocteur/booking-backend/internal/notify"
	"github.com/allodocteur/booking-backend/internal/payment"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/slotlock"
	"github.com/allodocteur/booking-backend/internal/utils"
)

// AppointmentConfig carries the URLs and defaults the coordinator needs.
type AppointmentConfig struct {
	// FrontendURL is the SPA origin used for checkout return URLs.
	FrontendURL string
	// ConfirmBaseURL is the public API base (PUBLIC_URL + API_BASE_PATH)
	// used to build emailed confirmation links.
	ConfirmBaseURL string
	// Currency is the ISO code charged for paid bookings.
	Currency string
	// IdempotencyTTL bounds how long an Idempotency-Key replays.
	IdempotencyTTL time.Duration
}

// AppointmentService coordinates the appointment lifecycle.
type AppointmentService struct {
	DB       *gorm.DB
	Payments payment.Gateway
	Notifier notify.Notifier
	Events   events.Publisher
	Locker   slotlock.Locker
	Config   AppointmentConfig

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// NewAppointmentService wires the coordinator. Nil collaborators fall back
// to no-op or in-process implementations.
func NewAppointmentService(db *gorm.DB, gw payment.Gateway, n notify.Notifier, pub events.Publisher, lk slotlock.Locker, cfg AppointmentConfig) *AppointmentService {
	if gw == nil {
		gw = payment.NewStripeGateway("", "")
	}
	if n == nil {
		n = notify.LogNotifier{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if lk == nil {
		lk = slotlock.NewLocal()
	}
	if cfg.Currency == "" {
		cfg.Currency = "xof"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.ConfirmBaseURL = strings.TrimRight(cfg.ConfirmBaseURL, "/")
	return &AppointmentService{
		DB:       db,
		Payments: gw,
		Notifier: n,
		Events:   pub,
		Locker:   lk,
		Config:   cfg,
		Now:      time.Now,
	}
}

func (s *AppointmentService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func apptTracer() trace.Tracer { return otel.Tracer("services/AppointmentService") }

// ----------------------------------------------------------------------------
// Create

// CreateInput is a validated booking request.
type CreateInput struct {
	PatientID       string
	DoctorID        string
	DateTime        string
	PaymentRequired bool

	// Optional replay protection; both must be set to take effect.
	IdempotencyScope string
	IdempotencyKey   string
}

// CreateResult is the outcome of Create. CheckoutURL is set for paid bookings.
type CreateResult struct {
	Appointment *domain.Appointment
	CheckoutURL string
	Replayed    bool
}

// Create books a slot. Unpaid bookings get a confirmation token and email;
// paid bookings get a hosted checkout session.
func (s *AppointmentService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	ctx, span := apptTracer().Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("patient.id", in.PatientID),
			attribute.String("doctor.id", in.DoctorID),
			attribute.Bool("payment.required", in.PaymentRequired),
		),
	)
	defer span.End()

	now := s.now()
	at, err := ParseDateTime(in.DateTime)
	if err != nil {
		return nil, err
	}
	if !at.After(now) {
		return nil, ErrDateTimeInPast
	}
	if strings.TrimSpace(in.DoctorID) == "" {
		return nil, ErrMissingDoctor
	}
	if in.PaymentRequired && !s.Payments.Configured() {
		return nil, ErrPaymentsUnavailable
	}

	idem := in.IdempotencyKey != "" && in.IdempotencyScope != ""
	if idem {
		rec, err := repo.GetIdempotency(ctx, s.DB, in.PatientID, in.IdempotencyScope, in.IdempotencyKey, now)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("idempotency.replay", true))
			return s.replay(ctx, rec.ResourceID)
		case !errors.Is(err, repo.ErrNotFound):
			return nil, err
		}
	}

	doctor, err := repo.GetDoctor(ctx, s.DB, in.DoctorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	patient, err := repo.GetUser(ctx, s.DB, in.PatientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	a := &domain.Appointment{
		ID:        uuid.NewString(),
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		DateTime:  at,
		Status:    domain.StatusPending,
		Amount:    doctor.PriceCfa,
		Currency:  s.Config.Currency,
	}
	if in.PaymentRequired {
		ref, err := newPaymentRef(now)
		if err != nil {
			return nil, err
		}
		a.PaymentStatus = strPtr(domain.PaymentPending)
		a.PaymentMethod = strPtr(domain.PaymentMethodCard)
		a.PaymentRef = &ref
	} else {
		tok, err := newConfirmToken()
		if err != nil {
			return nil, err
		}
		a.ConfirmToken = &tok
	}

	err = s.Locker.WithSlotLock(ctx, doctor.ID, at, func(ctx context.Context) error {
		busy, err := repo.HasActiveAppointmentAt(ctx, s.DB, doctor.ID, at)
		if err != nil {
			return err
		}
		if busy {
			return ErrSlotTaken
		}
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.CreateAppointment(ctx, tx, a); err != nil {
				return err
			}
			if idem {
				if _, err := repo.CreateIdempotency(ctx, tx, patient.ID, in.IdempotencyScope, in.IdempotencyKey, a.ID, 201, s.Config.IdempotencyTTL); err != nil {
					if errors.Is(err, repo.ErrDuplicate) {
						return ErrIdempotencyPending
					}
					return err
				}
			}
			return nil
		})
	})
	if errors.Is(err, slotlock.ErrLockNotAcquired) {
		return nil, ErrSlotBusy
	}
	if err != nil {
		return nil, err
	}

	a.Doctor = doctor
	res := &CreateResult{Appointment: a}
	flow := "unpaid"
	if in.PaymentRequired {
		flow = "paid"
		checkoutURL, err := s.startCheckout(ctx, a, doctor, patient)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout")
			return nil, err
		}
		res.CheckoutURL = checkoutURL
	} else {
		s.sendConfirmation(ctx, a, doctor, patient)
	}
	appointmentsCreated.WithLabelValues(flow).Inc()
	s.publish(ctx, events.AppointmentCreated, a)
	return res, nil
}

// replay returns the appointment an earlier request with the same key
// created. A paid booking whose checkout creation failed is retried.
func (s *AppointmentService) replay(ctx context.Context, appointmentID string) (*CreateResult, error) {
	a, err := repo.GetAppointmentWithDoctor(ctx, s.DB, appointmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	res := &CreateResult{Appointment: a, Replayed: true}
	if a.CheckoutURL != nil {
		res.CheckoutURL = *a.CheckoutURL
	}
	if a.RequiresPayment() && !a.IsPaid() && a.CheckoutURL == nil && a.Status == domain.StatusPending {
		patient, err := repo.GetUser(ctx, s.DB, a.PatientID)
		if err != nil {
			return nil, err
		}
		checkoutURL, err := s.startCheckout(ctx, a, a.Doctor, patient)
		if err != nil {
			return nil, err
		}
		res.CheckoutURL = checkoutURL
	}
	return res, nil
}

func (s *AppointmentService) startCheckout(ctx context.Context, a *domain.Appointment, d *domain.Doctor, p *domain.User) (string, error) {
	req := payment.CheckoutRequest{
		AppointmentID: a.ID,
		CustomerEmail: p.Email,
		ProductName:   "Consultation - " + d.FullName,
		Description:   strings.Join(nonEmpty(d.Specialty, d.Clinic, d.City), " · "),
		Amount:        a.Amount,
		Currency:      a.Currency,
		SuccessURL:    s.Config.FrontendURL + "/confirmed?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.Config.FrontendURL + "/confirm?canceled=1",
	}
	if a.PaymentRef != nil {
		req.PaymentRef = *a.PaymentRef
	}
	sess, err := s.Payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("appointment_id", a.ID).Msg("checkout session creation failed")
		return "", fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}
	if err := repo.AttachCheckoutSession(ctx, s.DB, a.ID, sess.ID, sess.URL); err != nil {
		return "", err
	}
	a.CheckoutSessionID = &sess.ID
	a.CheckoutURL = &sess.URL
	return sess.URL, nil
}

// ConfirmURL is the emailed link that confirms an unpaid booking.
func (s *AppointmentService) ConfirmURL(token string) string {
	return s.Config.ConfirmBaseURL + "/appointments/confirm?token=" + url.QueryEscape(token)
}

// ----------------------------------------------------------------------------
// Confirm by token

// ConfirmResult reports the state after a confirmation link was followed.
type ConfirmResult struct {
	Appointment *domain.Appointment
	// AlreadyConfirmed is true when the token had been consumed before.
	AlreadyConfirmed bool
}

// ConfirmByToken consumes a confirmation token. The first call moves a
// PENDING appointment to CONFIRMED; later calls change nothing and report
// AlreadyConfirmed. A cancelled appointment stays cancelled.
func (s *AppointmentService) ConfirmByToken(ctx context.Context, token string) (*ConfirmResult, error) {
	ctx, span := apptTracer().Start(ctx, "ConfirmByToken")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	a, err := repo.GetAppointmentByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("appointment.id", a.ID))

	consumed, err := repo.ConsumeConfirmToken(ctx, s.DB, a.ID, s.now())
	if err != nil {
		return nil, err
	}
	if a, err = repo.GetAppointment(ctx, s.DB, a.ID); err != nil {
		return nil, err
	}
	if !consumed {
		return &ConfirmResult{Appointment: a, AlreadyConfirmed: a.Status == domain.StatusConfirmed}, nil
	}
	appointmentTransitions.WithLabelValues(domain.StatusConfirmed).Inc()
	s.publish(ctx, events.AppointmentConfirmed, a)
	return &ConfirmResult{Appointment: a}, nil
}

// ----------------------------------------------------------------------------
// Payment webhook

// OutcomeDuplicate is reported for redelivered events; it is not stored.
const OutcomeDuplicate = "duplicate"

// PaymentOutcome describes how a verified event was handled.
type PaymentOutcome struct {
	EventID       string
	Type          string
	AppointmentID string
	Outcome       string
}

var errRollback = errors.New("rollback")

// HandlePaymentEvent verifies and applies a provider webhook delivery.
// Every verified event is acknowledged; only the first completed checkout
// for an unpaid appointment changes state and notifies the patient.
func (s *AppointmentService) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (*PaymentOutcome, error) {
	ctx, span := apptTracer().Start(ctx, "HandlePaymentEvent")
	defer span.End()

	if !s.Payments.WebhookConfigured() {
		return nil, ErrWebhookUnavailable
	}
	ev, err := s.Payments.ParseEvent(payload, signature)
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		span.SetStatus(codes.Error, "invalid signature")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, payment.ErrNotConfigured):
		return nil, ErrWebhookUnavailable
	case err != nil:
		return nil, err
	}
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", ev.Type),
		attribute.String("appointment.id", ev.AppointmentID),
	)

	out := &PaymentOutcome{EventID: ev.ID, Type: ev.Type, AppointmentID: ev.AppointmentID}
	now := s.now()

	var applied bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := repo.PaymentEventSeen(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			out.Outcome = OutcomeDuplicate
			return nil
		}

		switch {
		case ev.DecodeError != "":
			log.Warn().Str("event_id", ev.ID).Str("event_type", ev.Type).
				Str("error", ev.DecodeError).Msg("payment event could not be decoded")
			out.Outcome = domain.OutcomeMalformed
		case ev.Type != payment.EventCheckoutCompleted:
			out.Outcome = domain.OutcomeIgnoredType
		case ev.AppointmentID == "":
			out.Outcome = domain.OutcomeUnknownAppointment
		default:
			if _, err := repo.GetAppointment(ctx, tx, ev.AppointmentID); err != nil {
				if !errors.Is(err, repo.ErrNotFound) {
					return err
				}
				out.Outcome = domain.OutcomeUnknownAppointment
				break
			}
			applied, err = repo.MarkPaid(ctx, tx, ev.AppointmentID, ev.SessionID, ev.PaymentIntentID, now)
			if err != nil {
				return err
			}
			out.Outcome = domain.OutcomeAlreadyPaid
			if applied {
				out.Outcome = domain.OutcomeApplied
			}
		}

		if _, err := repo.RecordPaymentEvent(ctx, tx, ev.ID, ev.Type, ev.AppointmentID, out.Outcome); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// A concurrent delivery of the same event committed first.
				return errRollback
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errRollback) {
		applied, err = false, nil
		out.Outcome = OutcomeDuplicate
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	paymentEvents.WithLabelValues(out.Outcome).Inc()
	span.SetAttributes(attribute.String("event.outcome", out.Outcome))
	if !applied {
		return out, nil
	}

	a, err := repo.GetAppointmentWithDoctor(ctx, s.DB, ev.AppointmentID)
	if err != nil {
		log.Error().Err(err).Str("appointment_id", ev.AppointmentID).Msg("reload after payment failed")
		return out, nil
	}
	if a.Status == domain.StatusCancelled {
		log.Warn().Str("appointment_id", a.ID).Str("event_id", ev.ID).Msg("payment completed for a cancelled appointment")
	} else {
		appointmentTransitions.WithLabelValues(domain.StatusConfirmed).Inc()
		s.sendPaymentReceipt(ctx, a)
	}
	s.publish(ctx, events.AppointmentPaid, a)
	return out, nil
}

// ----------------------------------------------------------------------------
// Cancel, list, lookup

// Cancel sets CANCELLED on the caller's appointment regardless of its
// confirmation or payment state. No refund is issued.
func (s *AppointmentService) Cancel(ctx context.Context, appointmentID, patientID string) (*domain.Appointment, error) {
	ctx, span := apptTracer().Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.String("appointment.id", appointmentID),
			attribute.String("patient.id", patientID),
		),
	)
	defer span.End()

	a, err := repo.GetAppointment(ctx, s.DB, appointmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if a.PatientID != patientID {
		return nil, ErrNotOwner
	}
	if err := repo.CancelAppointment(ctx, s.DB, a.ID, s.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if a, err = repo.GetAppointment(ctx, s.DB, a.ID); err != nil {
		return nil, err
	}
	appointmentTransitions.WithLabelValues(domain.StatusCancelled).Inc()
	s.publish(ctx, events.AppointmentCancelled, a)
	return a, nil
}

// ListMine returns a page of the patient's appointments, latest first.
func (s *AppointmentService) ListMine(ctx context.Context, patientID string, page, pageSize int) ([]domain.Appointment, int64, error) {
	ctx, span := apptTracer().Start(ctx, "ListMine",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := utils.PageWindow(page, pageSize, 0)
	total, err := repo.CountAppointmentsByPatient(ctx, s.DB, patientID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Appointment{}, 0, nil
	}
	items, err := repo.ListAppointmentsByPatientPage(ctx, s.DB, patientID, offset, pageSize)
	return items, total, err
}

// GetByCheckoutSession returns the caller's appointment for a checkout
// session id (the success page lookup).
func (s *AppointmentService) GetByCheckoutSession(ctx context.Context, sessionID, patientID string) (*domain.Appointment, error) {
	ctx, span := apptTracer().Start(ctx, "GetByCheckoutSession")
	defer span.End()

	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	a, err := repo.GetAppointmentBySession(ctx, s.DB, sessionID, patientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return a, nil
}

// ----------------------------------------------------------------------------
// Side effects (best effort)

func (s *AppointmentService) sendConfirmation(ctx context.Context, a *domain.Appointment, d *domain.Doctor, p *domain.User) {
	msg, err := notify.ConfirmationMessage(notify.AppointmentMail{
		To:         p.Email,
		FullName:   p.FullName,
		DoctorName: d.FullName,
		DateTime:   a.DateTime,
		ConfirmURL: s.ConfirmURL(*a.ConfirmToken),
	})
	if err != nil {
		log.Error().Err(err).Str("appointment_id", a.ID).Msg("render confirmation email")
		notifications.WithLabelValues(notify.KindConfirmation, string(notify.StatusFailed)).Inc()
		return
	}
	s.deliver(ctx, a.ID, msg)
}

func (s *AppointmentService) sendPaymentReceipt(ctx context.Context, a *domain.Appointment) {
	p, err := repo.GetUser(ctx, s.DB, a.PatientID)
	if err != nil {
		log.Error().Err(err).Str("appointment_id", a.ID).Msg("load patient for receipt")
		return
	}
	data := notify.AppointmentMail{
		To:       p.Email,
		FullName: p.FullName,
		DateTime: a.DateTime,
		Amount:   a.Amount,
		Currency: a.Currency,
	}
	if a.Doctor != nil {
		data.DoctorName = a.Doctor.FullName
	}
	if a.PaymentRef != nil {
		data.PaymentRef = *a.PaymentRef
	}
	msg, err := notify.PaymentMessage(data)
	if err != nil {
		log.Error().Err(err).Str("appointment_id", a.ID).Msg("render payment email")
		notifications.WithLabelValues(notify.KindPayment, string(notify.StatusFailed)).Inc()
		return
	}
	s.deliver(ctx, a.ID, msg)
}

func (s *AppointmentService) deliver(ctx context.Context, appointmentID string, msg notify.Message) {
	res := s.Notifier.Send(ctx, msg)
	notifications.WithLabelValues(msg.Kind, string(res.Status)).Inc()
	switch res.Status {
	case notify.StatusFailed:
		log.Warn().Err(res.Err).Str("appointment_id", appointmentID).Str("kind", msg.Kind).Msg("notification failed")
	case notify.StatusSkipped:
		log.Info().Str("appointment_id", appointmentID).Str("kind", msg.Kind).Str("reason", res.Reason).Msg("notification skipped")
	}
}

func (s *AppointmentService) publish(ctx context.Context, key string, a *domain.Appointment) {
	ev := events.AppointmentEvent{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		DateTime:      a.DateTime,
		Status:        a.Status,
		PaymentStatus: a.PaymentStatus,
		OccurredAt:    s.now(),
	}
	if err := s.Events.Publish(ctx, key, ev); err != nil {
		log.Warn().Err(err).Str("appointment_id", a.ID).Str("event", key).Msg("publish failed")
	}
}

// ----------------------------------------------------------------------------
// Helpers

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime accepts RFC 3339 or a zone-less ISO local time read as UTC.
// The result is truncated to the second.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingDateTime
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}

func newConfirmToken() (string, error) { return randomHex(24) }

func newPaymentRef(now time.Time) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%d-%s", now.UnixMilli(), suffix), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
