package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
)

// withDoctor preloads the doctor including soft-deleted rows, so history
// stays readable after a hospital removes a profile.
func withDoctor(db *gorm.DB) *gorm.DB {
	return db.Preload("Doctor", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() })
}

// CreateAppointment inserts a fully populated appointment row.
// Returns ErrDuplicate if a unique column (token, payment ref) collides.
func CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetAppointment fetches an appointment by id, or ErrNotFound.
func GetAppointment(ctx context.Context, db *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointmentWithDoctor is GetAppointment with the doctor embedded.
func GetAppointmentWithDoctor(ctx context.Context, db *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := withDoctor(db.WithContext(ctx)).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointmentByToken looks up the appointment carrying a confirmation
// token, consumed or not. Returns ErrNotFound for unknown tokens.
func GetAppointmentByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := db.WithContext(ctx).First(&a, "confirm_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointmentBySession looks up a patient's appointment by checkout
// session id with the doctor embedded.
func GetAppointmentBySession(ctx context.Context, db *gorm.DB, sessionID, patientID string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := withDoctor(db.WithContext(ctx)).
		Where("checkout_session_id = ? AND patient_id = ?", sessionID, patientID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HasActiveAppointmentAt reports whether doctorID already has a
// non-cancelled appointment at exactly at.
func HasActiveAppointmentAt(ctx context.Context, db *gorm.DB, doctorID string, at time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("doctor_id = ? AND date_time = ? AND status <> ?", doctorID, at.UTC(), domain.StatusCancelled).
		Count(&n).Error
	return n > 0, err
}

// AttachCheckoutSession stores the provider session created for a paid booking.
func AttachCheckoutSession(ctx context.Context, db *gorm.DB, id, sessionID, url string) error {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"checkout_session_id": sessionID,
			"checkout_url":        url,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeConfirmToken moves a PENDING appointment to CONFIRMED and stamps
// token_consumed_at. The update is guarded on the prior state, so only the
// first caller observes consumed == true.
func ConsumeConfirmToken(ctx context.Context, db *gorm.DB, id string, now time.Time) (consumed bool, err error) {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND status = ? AND token_consumed_at IS NULL", id, domain.StatusPending).
		Updates(map[string]any{
			"status":            domain.StatusConfirmed,
			"token_consumed_at": now,
			"updated_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPaid is the compare-and-set for the payment dimension. It moves
// payment_status to PAID unless already PAID, confirms the appointment
// unless it was cancelled, and records provider correlation ids. Exactly
// one concurrent caller observes applied == true.
func MarkPaid(ctx context.Context, db *gorm.DB, id, sessionID, paymentIntentID string, now time.Time) (applied bool, err error) {
	updates := map[string]any{
		"payment_status": domain.PaymentPaid,
		"status": gorm.Expr("CASE WHEN status = ? THEN status ELSE ? END",
			domain.StatusCancelled, domain.StatusConfirmed),
		"paid_at":    now,
		"updated_at": now,
	}
	if sessionID != "" {
		updates["checkout_session_id"] = sessionID
	}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = paymentIntentID
	}
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND (payment_status IS NULL OR payment_status <> ?)", id, domain.PaymentPaid).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CancelAppointment sets CANCELLED regardless of prior state. The first
// cancellation time is preserved. Returns ErrNotFound if id is unknown.
func CancelAppointment(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.StatusCancelled,
			"cancelled_at": gorm.Expr("COALESCE(cancelled_at, ?)", now),
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountAppointmentsByPatient returns the number of appointments a patient owns.
func CountAppointmentsByPatient(ctx context.Context, db *gorm.DB, patientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("patient_id = ?", patientID).
		Count(&total).Error
	return total, err
}

// ListAppointmentsByPatientPage returns a page of a patient's appointments,
// latest consultation first, with the doctor embedded.
func ListAppointmentsByPatientPage(ctx context.Context, db *gorm.DB, patientID string, offset, limit int) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := withDoctor(db.WithContext(ctx)).
		Where("patient_id = ?", patientID).
		Order("date_time desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAppointmentsForHospital returns appointments booked with any doctor
// owned by hospitalUserID, newest first, with doctor and patient embedded.
func ListAppointmentsForHospital(ctx context.Context, db *gorm.DB, hospitalUserID string) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := withDoctor(db.WithContext(ctx)).
		Preload("Patient").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("doctors.hospital_user_id = ?", hospitalUserID).
		Order("appointments.created_at desc").
		Find(&out).Error
	return out, err
}
