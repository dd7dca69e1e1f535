package notify

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

// Message kinds, also used as metric labels.
const (
	KindConfirmation = "confirmation"
	KindPayment      = "payment"
)

// AppointmentMail carries the fields rendered into patient emails.
type AppointmentMail struct {
	To         string
	FullName   string
	DoctorName string
	DateTime   time.Time
	ConfirmURL string
	Amount     int64
	Currency   string
	PaymentRef string
}

var (
	layout = `<div style="font-family:system-ui;padding:16px">
  <h2 style="margin:0;color:#1E6BFF">AlloDocteur</h2>
  <p>Bonjour <b>{{.FullName}}</b>,</p>
  {{template "body" .}}
  <p style="margin-top:12px;color:#64748B;font-size:13px">
    Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.
  </p>
</div>`

	confirmTmpl = template.Must(template.Must(template.New("confirm").Funcs(funcs).Parse(layout)).Parse(`{{define "body"}}
  <p>Votre rendez-vous avec <b>{{.DoctorName}}</b> le <b>{{when .DateTime}}</b> est en attente de confirmation.</p>
  <a href="{{.ConfirmURL}}"
     style="display:inline-block;padding:12px 16px;border-radius:12px;background:#1E6BFF;color:white;text-decoration:none;font-weight:700">
     Confirmer mon rendez-vous
  </a>
{{end}}`))

	paymentTmpl = template.Must(template.Must(template.New("payment").Funcs(funcs).Parse(layout)).Parse(`{{define "body"}}
  <p>Votre paiement de <b>{{.Amount}} {{upper .Currency}}</b> a bien été reçu.</p>
  <p>Votre rendez-vous avec <b>{{.DoctorName}}</b> le <b>{{when .DateTime}}</b> est confirmé.</p>
  <p style="color:#64748B">Référence : {{.PaymentRef}}</p>
{{end}}`))
)

var funcs = template.FuncMap{
	"when":  func(t time.Time) string { return t.UTC().Format("02/01/2006 15:04 UTC") },
	"upper": strings.ToUpper,
}

// ConfirmationMessage renders the "confirm your appointment" email.
func ConfirmationMessage(d AppointmentMail) (Message, error) {
	return render(confirmTmpl, KindConfirmation, "Confirmation de votre rendez-vous", d)
}

// PaymentMessage renders the "payment received" email.
func PaymentMessage(d AppointmentMail) (Message, error) {
	return render(paymentTmpl, KindPayment, "Paiement reçu - rendez-vous confirmé", d)
}

func render(t *template.Template, kind, subject string, d AppointmentMail) (Message, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, To: d.To, Subject: subject, HTML: buf.String()}, nil
}
