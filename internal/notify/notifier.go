// Package notify delivers patient-facing notifications. Delivery is best
// effort: callers get a Result instead of an error and decide whether to
// log it, so a mail outage never fails a booking.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Status is the outcome of one delivery attempt.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Message is one outbound notification.
type Message struct {
	Kind    string // confirmation|payment
	To      string
	Subject string
	HTML    string
}

// Result reports what happened to a Message. Err is set only for StatusFailed.
type Result struct {
	Status Status
	Reason string
	Err    error
}

// Notifier sends messages. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) Result
}

// LogNotifier writes messages to the structured log instead of sending them.
// It backs local development when SMTP is not configured.
type LogNotifier struct{}

// Send implements Notifier.
func (LogNotifier) Send(_ context.Context, msg Message) Result {
	log.Info().
		Str("kind", msg.Kind).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("notification logged")
	return Result{Status: StatusOK}
}
