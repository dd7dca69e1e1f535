package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/repo"
)

// HospitalService backs the hospital dashboard.
type HospitalService struct {
	DB *gorm.DB
}

// Stats returns roster and booking counters for the hospital.
func (s *HospitalService) Stats(ctx context.Context, hospitalUserID string) (repo.HospitalCounts, error) {
	ctx, span := otel.Tracer("services/HospitalService").Start(ctx, "Stats",
		trace.WithAttributes(attribute.String("hospital.id", hospitalUserID)),
	)
	defer span.End()
	return repo.HospitalStats(ctx, s.DB, hospitalUserID)
}

// Appointments lists bookings with the hospital's doctors, newest first.
func (s *HospitalService) Appointments(ctx context.Context, hospitalUserID string) ([]domain.Appointment, error) {
	ctx, span := otel.Tracer("services/HospitalService").Start(ctx, "Appointments",
		trace.WithAttributes(attribute.String("hospital.id", hospitalUserID)),
	)
	defer span.End()
	items, err := repo.ListAppointmentsForHospital(ctx, s.DB, hospitalUserID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Appointment{}
	}
	return items, nil
}
