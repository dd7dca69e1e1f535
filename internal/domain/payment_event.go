package domain

import "time"

// Outcomes recorded for every verified provider event.
const (
	OutcomeApplied            = "applied"
	OutcomeAlreadyPaid        = "already_paid"
	OutcomeUnknownAppointment = "unknown_appointment"
	OutcomeIgnoredType        = "ignored_type"
	OutcomeMalformed          = "malformed"
)

// PaymentEvent is the ledger of provider webhook deliveries. The unique
// EventID makes a redelivered event detectable even when the appointment
// row alone could not tell.
type PaymentEvent struct {
	ID            string    `json:"id"            gorm:"type:char(36);primaryKey"`
	EventID       string    `json:"eventId"       gorm:"type:varchar(255);not null;uniqueIndex:ux_payment_events_event"`
	Type          string    `json:"type"          gorm:"type:varchar(128);not null"`
	AppointmentID string    `json:"appointmentId" gorm:"type:varchar(64);index"`
	Outcome       string    `json:"outcome"       gorm:"type:varchar(32);not null"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName returns the database table name for PaymentEvent.
func (PaymentEvent) TableName() string { return "payment_events" }
