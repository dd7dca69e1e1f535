package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
)

// PaymentEventSeen reports whether eventID is already in the ledger.
func PaymentEventSeen(ctx context.Context, db *gorm.DB, eventID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n > 0, err
}

// RecordPaymentEvent appends a ledger row. Returns ErrDuplicate when the
// event id was already recorded by a concurrent delivery.
func RecordPaymentEvent(ctx context.Context, db *gorm.DB, eventID, eventType, appointmentID, outcome string) (*domain.PaymentEvent, error) {
	ev := &domain.PaymentEvent{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Type:          eventType,
		AppointmentID: appointmentID,
		Outcome:       outcome,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ev, nil
}

// ListPaymentEvents returns the ledger rows for one appointment, oldest first.
func ListPaymentEvents(ctx context.Context, db *gorm.DB, appointmentID string) ([]domain.PaymentEvent, error) {
	var out []domain.PaymentEvent
	err := db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
