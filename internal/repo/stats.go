// This file provides small aggregate queries used for conditional
// responses (ETag generation) and the hospital dashboard.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
)

// AppointmentsStats returns the number of a patient's appointments and the
// greatest UpdatedAt among them (nil when there are none).
func AppointmentsStats(ctx context.Context, db *gorm.DB, patientID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Appointment{}).Where("patient_id = ?", patientID)
	return countAndLatest(q)
}

// DoctorsStats returns the number of listed doctors and the latest UpdatedAt.
func DoctorsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Doctor{})
	return countAndLatest(q)
}

func countAndLatest(q *gorm.DB) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		UpdatedAt time.Time
	}
	if err := q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// HospitalCounts is the dashboard summary for one hospital account.
type HospitalCounts struct {
	DoctorsCount      int64 `json:"doctorsCount"`
	AppointmentsCount int64 `json:"appointmentsCount"`
	PendingCount      int64 `json:"pendingCount"`
}

// HospitalStats counts owned doctors, their appointments, and those still pending.
func HospitalStats(ctx context.Context, db *gorm.DB, hospitalUserID string) (HospitalCounts, error) {
	var out HospitalCounts
	db = db.WithContext(ctx)

	if err := db.Model(&domain.Doctor{}).
		Where("hospital_user_id = ?", hospitalUserID).
		Count(&out.DoctorsCount).Error; err != nil {
		return HospitalCounts{}, err
	}

	owned := db.Model(&domain.Appointment{}).
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("doctors.hospital_user_id = ?", hospitalUserID)

	if err := owned.Session(&gorm.Session{}).Count(&out.AppointmentsCount).Error; err != nil {
		return HospitalCounts{}, err
	}
	if err := owned.Session(&gorm.Session{}).
		Where("appointments.status = ?", domain.StatusPending).
		Count(&out.PendingCount).Error; err != nil {
		return HospitalCounts{}, err
	}
	return out, nil
}
