package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/events"
	"github.com/allodocteur/booking-backend/internal/notify"
	"github.com/allodocteur/booking-backend/internal/payment"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/slotlock"
)

const whsec = "whsec_services_test"

var testNow = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

// ----- fixtures -----

func openServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *AppointmentService
	mail     *recordingNotifier
	pub      *events.Recorder
	checkout *checkoutBackend
	hospital *domain.User
	patient  *domain.User
	other    *domain.User
	doctor   *domain.Doctor
}

func newFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{db: db, mail: &recordingNotifier{}, pub: &events.Recorder{}}

	var err error
	if f.hospital, err = repo.CreateUser(ctx, db, "hospital@demo.com", "x", "Hôpital Principal", domain.RoleHospital); err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	if f.patient, err = repo.CreateUser(ctx, db, "patient@demo.com", "x", "Fatou Ndiaye", domain.RolePatient); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	if f.other, err = repo.CreateUser(ctx, db, "other@demo.com", "x", "Moussa Fall", domain.RolePatient); err != nil {
		t.Fatalf("seed other patient: %v", err)
	}
	f.doctor = &domain.Doctor{
		FullName: "Dr Awa Diop", Specialty: "Généraliste", Clinic: "Clinique Saint Michel",
		City: "Dakar", PriceCfa: 10000, HospitalUserID: f.hospital.ID,
	}
	if err := repo.CreateDoctor(ctx, db, f.doctor); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	f.checkout = newCheckoutBackend(t)
	gw := payment.NewStripeGateway("sk_test_123", whsec, payment.WithBackendURL(f.checkout.srv.URL))
	f.svc = NewAppointmentService(db, gw, f.mail, f.pub, slotlock.NewLocal(), AppointmentConfig{
		FrontendURL:    "http://front.test/",
		ConfirmBaseURL: "http://api.test/api",
		Currency:       "xof",
	})
	f.svc.Now = func() time.Time { return testNow }
	return f
}

func (f *fixture) book(t *testing.T, paid bool, at string) *CreateResult {
	t.Helper()
	res, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: at, PaymentRequired: paid,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res
}

func (f *fixture) reload(t *testing.T, id string) *domain.Appointment {
	t.Helper()
	a, err := repo.GetAppointment(context.Background(), f.db, id)
	if err != nil {
		t.Fatalf("reload %s: %v", id, err)
	}
	return a
}

// recordingNotifier captures every message and answers with status.
type recordingNotifier struct {
	mu     sync.Mutex
	msgs   []notify.Message
	status notify.Status
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	if n.status == notify.StatusFailed {
		return notify.Result{Status: notify.StatusFailed, Err: errors.New("smtp down")}
	}
	return notify.Result{Status: notify.StatusOK}
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

// checkoutBackend stands in for the provider's checkout API.
type checkoutBackend struct {
	srv   *httptest.Server
	calls atomic.Int32
	fail  atomic.Bool
	meta  sync.Map // appointmentId -> form
}

func newCheckoutBackend(t *testing.T) *checkoutBackend {
	b := &checkoutBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := b.calls.Add(1)
		if b.fail.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"boom"}}`))
			return
		}
		_ = r.ParseForm()
		b.meta.Store(r.PostForm.Get("metadata[appointmentId]"), r.PostForm)
		id := fmt.Sprintf("cs_test_%d", n)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"object":"checkout.session","url":"https://checkout.test/%s"}`, id, id)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func completedEvent(eventID, sessionID, appointmentID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": %q,
    "object": "checkout.session",
    "metadata": {"appointmentId": %q},
    "payment_intent": "pi_123"
  }}
}`, eventID, sessionID, appointmentID))
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    whsec,
		Timestamp: time.Now(),
	}).Header
}

// ----- Create -----

func TestAppointment_Create_Unpaid_PendingWithTokenAndEmail(t *testing.T) {
	f := newFixture(t, openServiceDB(t))

	res := f.book(t, false, "2026-01-15T10:00:00Z")
	a := res.Appointment

	if a.Status != domain.StatusPending || a.PaymentStatus != nil {
		t.Fatalf("want PENDING/unpaid, got %s/%v", a.Status, a.PaymentStatus)
	}
	if a.ConfirmToken == nil || *a.ConfirmToken == "" {
		t.Fatalf("want a non-empty confirmation token")
	}
	if res.CheckoutURL != "" {
		t.Fatalf("unpaid booking must not have a checkout url")
	}
	if got := f.mail.count(notify.KindConfirmation); got != 1 {
		t.Fatalf("want 1 confirmation attempt, got %d", got)
	}
	wantLink := "http://api.test/api/appointments/confirm?token=" + *a.ConfirmToken
	if !strings.Contains(f.mail.msgs[0].HTML, wantLink) {
		t.Fatalf("email should carry %q", wantLink)
	}
	if a.Amount != 10000 || a.Currency != "xof" {
		t.Fatalf("amount snapshot: got %d %s", a.Amount, a.Currency)
	}
	if keys := f.pub.Keys(); len(keys) != 1 || keys[0] != events.AppointmentCreated {
		t.Fatalf("events: %v", keys)
	}
}

func TestAppointment_Create_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.mail.status = notify.StatusFailed
	f.pub.Err = errors.New("broker down")

	res := f.book(t, false, "2026-01-15T10:00:00Z")
	if got := f.reload(t, res.Appointment.ID); got.Status != domain.StatusPending {
		t.Fatalf("appointment should persist, got %s", got.Status)
	}
	if f.mail.count(notify.KindConfirmation) != 1 {
		t.Fatalf("attempt should still be recorded")
	}
}

func TestAppointment_Create_Validation(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing date", CreateInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID}, ErrMissingDateTime},
		{"bad date", CreateInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "tomorrow"}, ErrInvalidDateTime},
		{"past date", CreateInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2025-12-01T10:00:00Z"}, ErrDateTimeInPast},
		{"missing doctor", CreateInput{PatientID: f.patient.ID, DateTime: "2026-01-15T10:00"}, ErrMissingDoctor},
		{"unknown doctor", CreateInput{PatientID: f.patient.ID, DoctorID: "nope", DateTime: "2026-01-15T10:00"}, ErrDoctorNotFound},
		{"unknown patient", CreateInput{PatientID: "ghost", DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00"}, ErrPatientNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
	if !errors.Is(ErrDateTimeInPast, ErrInvalidInput) || !errors.Is(ErrDoctorNotFound, ErrNotFound) {
		t.Fatalf("specific errors must wrap their taxonomy root")
	}
}

func TestAppointment_Create_SlotTaken(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.book(t, false, "2026-01-15T10:00:00Z")

	_, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.other.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z",
	})
	if !errors.Is(err, ErrSlotTaken) || !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrSlotTaken, got %v", err)
	}
}

func TestAppointment_Create_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	first := f.book(t, false, "2026-01-15T10:00:00Z")
	if _, err := f.svc.Cancel(context.Background(), first.Appointment.ID, f.patient.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.other.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z",
	}); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, string, time.Time, func(context.Context) error) error {
	return slotlock.ErrLockNotAcquired
}

func TestAppointment_Create_SlotBusy(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.svc.Locker = busyLocker{}

	_, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z",
	})
	if !errors.Is(err, ErrSlotBusy) {
		t.Fatalf("want ErrSlotBusy, got %v", err)
	}
}

func TestAppointment_Create_Paid(t *testing.T) {
	f := newFixture(t, openServiceDB(t))

	res := f.book(t, true, "2026-01-15T10:00:00Z")
	a := f.reload(t, res.Appointment.ID)

	if a.Status != domain.StatusPending || a.PaymentStatus == nil || *a.PaymentStatus != domain.PaymentPending {
		t.Fatalf("want PENDING/PENDING, got %s/%v", a.Status, a.PaymentStatus)
	}
	if a.ConfirmToken != nil {
		t.Fatalf("paid booking must not get a confirmation token")
	}
	if a.PaymentRef == nil || !strings.HasPrefix(*a.PaymentRef, "PAY-") {
		t.Fatalf("payment ref: %v", a.PaymentRef)
	}
	if res.CheckoutURL == "" || a.CheckoutURL == nil || *a.CheckoutURL != res.CheckoutURL {
		t.Fatalf("checkout url not stored: %q vs %v", res.CheckoutURL, a.CheckoutURL)
	}
	if f.mail.count(notify.KindConfirmation) != 0 {
		t.Fatalf("paid booking must not send a confirmation email")
	}

	v, ok := f.checkout.meta.Load(a.ID)
	if !ok {
		t.Fatalf("checkout request did not carry appointment metadata")
	}
	form := v.(interface{ Get(string) string })
	if got := form.Get("line_items[0][price_data][unit_amount]"); got != "10000" {
		t.Fatalf("xof is zero-decimal, want 10000, got %s", got)
	}
	if got := form.Get("success_url"); got != "http://front.test/confirmed?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("success_url: %s", got)
	}
	if got := form.Get("metadata[paymentRef]"); got != *a.PaymentRef {
		t.Fatalf("paymentRef metadata: %s", got)
	}
}

func TestAppointment_Create_PaidWithoutProvider(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.svc.Payments = payment.NewStripeGateway("", whsec)

	_, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z", PaymentRequired: true,
	})
	if !errors.Is(err, ErrPaymentsUnavailable) || !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrPaymentsUnavailable, got %v", err)
	}
	var n int64
	f.db.Model(&domain.Appointment{}).Count(&n)
	if n != 0 {
		t.Fatalf("nothing should be stored, got %d rows", n)
	}
}

func TestAppointment_Create_CheckoutFailure(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.checkout.fail.Store(true)

	_, err := f.svc.Create(context.Background(), CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z", PaymentRequired: true,
	})
	if !errors.Is(err, ErrCheckoutFailed) || !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("want ErrCheckoutFailed, got %v", err)
	}
}

func TestAppointment_Create_IdempotentReplay(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	in := CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z",
		IdempotencyScope: "POST /appointments", IdempotencyKey: "k-1",
	}

	first, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed || second.Appointment.ID != first.Appointment.ID {
		t.Fatalf("want replay of %s, got %+v", first.Appointment.ID, second)
	}
	if f.mail.count(notify.KindConfirmation) != 1 {
		t.Fatalf("replay must not resend the email")
	}
}

func TestAppointment_Create_ReplayRetriesFailedCheckout(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	in := CreateInput{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, DateTime: "2026-01-15T10:00:00Z", PaymentRequired: true,
		IdempotencyScope: "POST /appointments", IdempotencyKey: "k-pay",
	}

	f.checkout.fail.Store(true)
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, ErrCheckoutFailed) {
		t.Fatalf("want checkout failure, got %v", err)
	}
	f.checkout.fail.Store(false)
	res, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Replayed || res.CheckoutURL == "" {
		t.Fatalf("retry should reuse the appointment and return a url: %+v", res)
	}
}

// ----- Confirm -----

func TestAppointment_ConfirmByToken(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, false, "2026-01-15T10:00:00Z").Appointment

	r1, err := f.svc.ConfirmByToken(ctx, *a.ConfirmToken)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if r1.AlreadyConfirmed || r1.Appointment.Status != domain.StatusConfirmed {
		t.Fatalf("first confirm: %+v", r1)
	}

	r2, err := f.svc.ConfirmByToken(ctx, *a.ConfirmToken)
	if err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if !r2.AlreadyConfirmed || r2.Appointment.Status != domain.StatusConfirmed {
		t.Fatalf("second confirm should be a no-op: %+v", r2)
	}

	n := 0
	for _, k := range f.pub.Keys() {
		if k == events.AppointmentConfirmed {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("want one confirmed event, got %d", n)
	}
}

func TestAppointment_ConfirmByToken_Errors(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()

	if _, err := f.svc.ConfirmByToken(ctx, "  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("want ErrMissingToken, got %v", err)
	}
	if _, err := f.svc.ConfirmByToken(ctx, "unknown"); !errors.Is(err, ErrTokenNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrTokenNotFound, got %v", err)
	}
}

func TestAppointment_ConfirmByToken_CancelledStaysCancelled(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, false, "2026-01-15T10:00:00Z").Appointment
	if _, err := f.svc.Cancel(ctx, a.ID, f.patient.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	r, err := f.svc.ConfirmByToken(ctx, *a.ConfirmToken)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if r.Appointment.Status != domain.StatusCancelled || r.AlreadyConfirmed {
		t.Fatalf("cancelled appointment must not be confirmed: %+v", r)
	}
}

// openFileDB backs concurrency tests with a pooled on-disk database so
// goroutines really use separate connections.
func openFileDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAppointment_ConfirmByToken_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t, openFileDB(t, "confirm.db"))
	a := f.book(t, false, "2026-01-15T10:00:00Z").Appointment

	var wg sync.WaitGroup
	var fresh atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.svc.ConfirmByToken(context.Background(), *a.ConfirmToken)
			if err != nil {
				t.Errorf("confirm: %v", err)
				return
			}
			if !r.AlreadyConfirmed {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	if fresh.Load() != 1 {
		t.Fatalf("want exactly one first confirmation, got %d", fresh.Load())
	}
}

// ----- Payment webhook -----

func TestAppointment_PaymentEvent_MarksPaidOnce(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment
	payload := completedEvent("evt_1", *a.CheckoutSessionID, a.ID)

	out, err := f.svc.HandlePaymentEvent(ctx, payload, sign(payload))
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if out.Outcome != domain.OutcomeApplied {
		t.Fatalf("outcome: %s", out.Outcome)
	}
	got := f.reload(t, a.ID)
	if got.Status != domain.StatusConfirmed || !got.IsPaid() || got.PaidAt == nil {
		t.Fatalf("want CONFIRMED/PAID with paidAt, got %s/%v/%v", got.Status, got.PaymentStatus, got.PaidAt)
	}
	if got.PaymentIntentID == nil || *got.PaymentIntentID != "pi_123" {
		t.Fatalf("payment intent not stored")
	}
	if f.mail.count(notify.KindPayment) != 1 {
		t.Fatalf("want exactly 1 payment email, got %d", f.mail.count(notify.KindPayment))
	}
	paidAt := *got.PaidAt

	// Same event redelivered.
	out, err = f.svc.HandlePaymentEvent(ctx, payload, sign(payload))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if out.Outcome != OutcomeDuplicate {
		t.Fatalf("redelivery outcome: %s", out.Outcome)
	}
	// A different event for the same, already paid appointment.
	other := completedEvent("evt_2", *a.CheckoutSessionID, a.ID)
	out, err = f.svc.HandlePaymentEvent(ctx, other, sign(other))
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if out.Outcome != domain.OutcomeAlreadyPaid {
		t.Fatalf("second event outcome: %s", out.Outcome)
	}

	got = f.reload(t, a.ID)
	if got.Status != domain.StatusConfirmed || !got.IsPaid() || !got.PaidAt.Equal(paidAt) {
		t.Fatalf("state changed on redelivery: %+v", got)
	}
	if f.mail.count(notify.KindPayment) != 1 {
		t.Fatalf("payment email count must stay 1, got %d", f.mail.count(notify.KindPayment))
	}
	ledger, err := repo.ListPaymentEvents(ctx, f.db, a.ID)
	if err != nil || len(ledger) != 2 {
		t.Fatalf("want 2 ledger rows, got %d (%v)", len(ledger), err)
	}
}

func TestAppointment_PaymentEvent_ConcurrentDeliverySingleWinner(t *testing.T) {
	cases := []struct {
		name     string
		eventIDs func(i int) string
	}{
		{"same event", func(int) string { return "evt_same" }},
		{"distinct events", func(i int) string { return fmt.Sprintf("evt_%d", i) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, openFileDB(t, "webhook.db"))
			a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment

			const n = 8
			var wg sync.WaitGroup
			var applied atomic.Int32
			for i := 0; i < n; i++ {
				payload := completedEvent(tc.eventIDs(i), *a.CheckoutSessionID, a.ID)
				wg.Add(1)
				go func() {
					defer wg.Done()
					out, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload))
					if err != nil {
						t.Errorf("webhook: %v", err)
						return
					}
					if out.Outcome == domain.OutcomeApplied {
						applied.Add(1)
					}
				}()
			}
			wg.Wait()

			if applied.Load() != 1 {
				t.Fatalf("want exactly one applied outcome, got %d", applied.Load())
			}
			if c := f.mail.count(notify.KindPayment); c != 1 {
				t.Fatalf("want exactly 1 payment email, got %d", c)
			}
			if got := f.reload(t, a.ID); got.Status != domain.StatusConfirmed || !got.IsPaid() {
				t.Fatalf("want CONFIRMED/PAID, got %s/%v", got.Status, got.PaymentStatus)
			}
		})
	}
}

func TestAppointment_PaymentEvent_UndecodableSessionIsAcknowledged(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment

	payload := []byte(`{"id":"evt_m","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_m","object":"checkout.session","metadata":"oops"}}}`)
	out, err := f.svc.HandlePaymentEvent(ctx, payload, sign(payload))
	if err != nil || out.Outcome != domain.OutcomeMalformed {
		t.Fatalf("want malformed outcome without error, got %v %+v", err, out)
	}
	got := f.reload(t, a.ID)
	if got.IsPaid() || got.Status != domain.StatusPending {
		t.Fatalf("state must not change: %s/%v", got.Status, got.PaymentStatus)
	}
	if f.mail.count(notify.KindPayment) != 0 {
		t.Fatalf("no email for an undecodable event")
	}

	seen, err := repo.PaymentEventSeen(ctx, f.db, "evt_m")
	if err != nil || !seen {
		t.Fatalf("event must be recorded in the ledger: seen=%v err=%v", seen, err)
	}
	out, err = f.svc.HandlePaymentEvent(ctx, payload, sign(payload))
	if err != nil || out.Outcome != OutcomeDuplicate {
		t.Fatalf("redelivery: %v %+v", err, out)
	}
}

func TestAppointment_PaymentEvent_InvalidSignature(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment
	payload := completedEvent("evt_bad", "cs_x", a.ID)

	_, err := f.svc.HandlePaymentEvent(context.Background(), payload, "t=1,v1=00")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
	got := f.reload(t, a.ID)
	if got.IsPaid() || got.Status != domain.StatusPending {
		t.Fatalf("state must not change: %s/%v", got.Status, got.PaymentStatus)
	}
	if f.mail.count(notify.KindPayment) != 0 {
		t.Fatalf("no email on rejected webhook")
	}
}

func TestAppointment_PaymentEvent_NotConfigured(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	f.svc.Payments = payment.NewStripeGateway("sk_test", "")

	payload := completedEvent("evt_1", "cs", "a")
	if _, err := f.svc.HandlePaymentEvent(context.Background(), payload, sign(payload)); !errors.Is(err, ErrWebhookUnavailable) {
		t.Fatalf("want ErrWebhookUnavailable, got %v", err)
	}
}

func TestAppointment_PaymentEvent_IgnoredAndUnknown(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()

	other := []byte(`{"id":"evt_o","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	out, err := f.svc.HandlePaymentEvent(ctx, other, sign(other))
	if err != nil || out.Outcome != domain.OutcomeIgnoredType {
		t.Fatalf("other type: %v %+v", err, out)
	}

	unknown := completedEvent("evt_u", "cs_u", "does-not-exist")
	out, err = f.svc.HandlePaymentEvent(ctx, unknown, sign(unknown))
	if err != nil || out.Outcome != domain.OutcomeUnknownAppointment {
		t.Fatalf("unknown appointment: %v %+v", err, out)
	}
	if f.mail.count(notify.KindPayment) != 0 {
		t.Fatalf("no email for ignored events")
	}
}

func TestAppointment_PaymentEvent_CancelledStaysCancelled(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment
	if _, err := f.svc.Cancel(ctx, a.ID, f.patient.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	payload := completedEvent("evt_late", *a.CheckoutSessionID, a.ID)
	out, err := f.svc.HandlePaymentEvent(ctx, payload, sign(payload))
	if err != nil || out.Outcome != domain.OutcomeApplied {
		t.Fatalf("late payment: %v %+v", err, out)
	}
	got := f.reload(t, a.ID)
	if got.Status != domain.StatusCancelled || !got.IsPaid() {
		t.Fatalf("want CANCELLED/PAID, got %s/%v", got.Status, got.PaymentStatus)
	}
	if f.mail.count(notify.KindPayment) != 0 {
		t.Fatalf("cancelled appointment must not get a payment email")
	}
}

// ----- Cancel, list, lookup -----

func TestAppointment_Cancel(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, false, "2026-01-15T10:00:00Z").Appointment

	if _, err := f.svc.Cancel(ctx, a.ID, f.other.ID); !errors.Is(err, ErrNotOwner) || !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
	if got := f.reload(t, a.ID); got.Status != domain.StatusPending {
		t.Fatalf("forbidden cancel must not change state")
	}
	if _, err := f.svc.Cancel(ctx, "missing", f.patient.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("want ErrAppointmentNotFound, got %v", err)
	}

	got, err := f.svc.Cancel(ctx, a.ID, f.patient.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.StatusCancelled || got.CancelledAt == nil {
		t.Fatalf("want CANCELLED with cancelledAt, got %+v", got)
	}
	// Cancelling twice is harmless.
	if _, err := f.svc.Cancel(ctx, a.ID, f.patient.ID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestAppointment_Cancel_PaidAppointment(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment
	payload := completedEvent("evt_1", *a.CheckoutSessionID, a.ID)
	if _, err := f.svc.HandlePaymentEvent(ctx, payload, sign(payload)); err != nil {
		t.Fatalf("pay: %v", err)
	}

	got, err := f.svc.Cancel(ctx, a.ID, f.patient.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.StatusCancelled || !got.IsPaid() {
		t.Fatalf("payment must stay PAID after cancel: %s/%v", got.Status, got.PaymentStatus)
	}
}

func TestAppointment_ListMine(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	f.book(t, false, "2026-01-15T10:00:00Z")
	f.book(t, false, "2026-01-16T10:00:00Z")
	f.book(t, false, "2026-01-17T10:00:00Z")

	items, total, err := f.svc.ListMine(ctx, f.patient.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("want 2 of 3, got %d of %d", len(items), total)
	}
	if !items[0].DateTime.After(items[1].DateTime) {
		t.Fatalf("want latest first")
	}
	if items[0].Doctor == nil || items[0].Doctor.FullName != "Dr Awa Diop" {
		t.Fatalf("doctor should be embedded")
	}

	empty, total, err := f.svc.ListMine(ctx, f.other.ID, 1, 10)
	if err != nil || total != 0 || len(empty) != 0 {
		t.Fatalf("other patient: %v %d %d", err, total, len(empty))
	}
}

func TestAppointment_GetByCheckoutSession(t *testing.T) {
	f := newFixture(t, openServiceDB(t))
	ctx := context.Background()
	a := f.book(t, true, "2026-01-15T10:00:00Z").Appointment

	got, err := f.svc.GetByCheckoutSession(ctx, *a.CheckoutSessionID, f.patient.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("lookup: %v %+v", err, got)
	}
	if _, err := f.svc.GetByCheckoutSession(ctx, *a.CheckoutSessionID, f.other.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("other patient must not see it, got %v", err)
	}
	if _, err := f.svc.GetByCheckoutSession(ctx, "", f.patient.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("empty session: %v", err)
	}
}

func TestParseDateTime(t *testing.T) {
	cases := map[string]time.Time{
		"2026-01-15T10:00:00Z":      time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		"2026-01-15T10:00:00.789Z":  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		"2026-01-15T11:00:00+01:00": time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		"2026-01-15T10:00":          time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		"2026-01-15 10:00":          time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDateTime(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("%q: got %v, %v", in, got, err)
		}
	}
}
