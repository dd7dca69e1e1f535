package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/allodocteur/booking-backend/internal/config"
)

const senderName = "AlloDocteur"

// Mailer sends notifications over SMTP. It skips delivery when disabled or
// when host, user or password are missing.
type Mailer struct {
	cfg  config.MailConfig
	send func(ctx context.Context, m *mail.Msg) error
}

// NewMailer builds an SMTP notifier from configuration.
func NewMailer(cfg config.MailConfig) *Mailer {
	mm := &Mailer{cfg: cfg}
	mm.send = mm.dialAndSend
	return mm
}

// Enabled reports whether Send will attempt delivery.
func (m *Mailer) Enabled() bool { return m.skipReason() == "" }

func (m *Mailer) skipReason() string {
	switch {
	case m.cfg.Disabled:
		return "mail disabled"
	case strings.TrimSpace(m.cfg.Host) == "",
		strings.TrimSpace(m.cfg.User) == "",
		strings.TrimSpace(m.cfg.Pass) == "":
		return "mail not configured"
	}
	return ""
}

func (m *Mailer) from() string {
	if f := strings.TrimSpace(m.cfg.From); f != "" {
		return f
	}
	return m.cfg.User
}

// Send implements Notifier.
func (m *Mailer) Send(ctx context.Context, msg Message) Result {
	if reason := m.skipReason(); reason != "" {
		return Result{Status: StatusSkipped, Reason: reason}
	}
	if strings.TrimSpace(msg.To) == "" {
		return Result{Status: StatusSkipped, Reason: "no recipient"}
	}

	em := mail.NewMsg()
	if err := em.FromFormat(senderName, m.from()); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if err := em.To(msg.To); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if err := m.send(ctx, em); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusOK}
}

func (m *Mailer) dialAndSend(ctx context.Context, em *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Pass),
		mail.WithTimeout(10 * time.Second),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	if err := c.DialAndSendWithContext(ctx, em); err != nil {
		return errors.Join(errors.New("smtp send"), err)
	}
	return nil
}
