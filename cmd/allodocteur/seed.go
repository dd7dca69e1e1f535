package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/repo"
)

type demoAccount struct {
	email, password, fullName, role string
}

var (
	demoHospital = demoAccount{"hospital@demo.com", "Hospital123!", "Clinique Saint Michel", domain.RoleHospital}
	demoPatient  = demoAccount{"patient@demo.com", "Patient123!", "Patient Démo", domain.RolePatient}

	fakeSpecialties = []string{
		"Généraliste", "Cardiologue", "Pédiatre", "Dermatologue", "Gynécologue",
		"Ophtalmologue", "Dentiste", "ORL", "Psychiatre", "Neurologue",
	}
	fakeCities = []string{"Dakar", "Thiès", "Saint-Louis", "Ziguinchor", "Kaolack", "Mbour", "Touba"}
)

func weekAvailability() []domain.DayAvailability {
	return []domain.DayAvailability{
		{DayLabel: "Lun", DayNumber: 1, Times: []string{"09:00", "10:00", "11:00", "15:00"}},
		{DayLabel: "Mer", DayNumber: 3, Times: []string{"09:30", "10:30", "16:00"}},
		{DayLabel: "Ven", DayNumber: 5, Times: []string{"08:30", "09:30"}},
	}
}

// seedDemo creates the demo accounts and doctor once; rerunning it only
// adds the requested fake doctors.
func seedDemo(ctx context.Context, db *gorm.DB, fakeDoctors int) error {
	hosp, created, err := ensureUser(ctx, db, demoHospital)
	if err != nil {
		return err
	}
	if _, _, err := ensureUser(ctx, db, demoPatient); err != nil {
		return err
	}

	if created {
		d := &domain.Doctor{
			FullName:       "Dr Awa Diop",
			Specialty:      "Généraliste",
			Clinic:         "Clinique Saint Michel",
			City:           "Dakar",
			PriceCfa:       10000,
			About:          []string{"Médecine générale adulte et enfant", "Consultations en français et en wolof"},
			Availability:   weekAvailability(),
			HospitalUserID: hosp.ID,
		}
		if err := repo.CreateDoctor(ctx, db, d); err != nil {
			return fmt.Errorf("seed doctor: %w", err)
		}
		log.Info().Str("doctor_id", d.ID).Msg("seeded demo doctor")
	}

	if fakeDoctors <= 0 {
		return nil
	}
	gofakeit.Seed(time.Now().UnixNano())
	for i := 0; i < fakeDoctors; i++ {
		d := &domain.Doctor{
			FullName:       "Dr " + gofakeit.Name(),
			Specialty:      fakeSpecialties[gofakeit.Number(0, len(fakeSpecialties)-1)],
			Clinic:         gofakeit.Company(),
			City:           fakeCities[gofakeit.Number(0, len(fakeCities)-1)],
			PriceCfa:       int64(gofakeit.Number(5, 40)) * 1000,
			About:          []string{gofakeit.Sentence(8)},
			Availability:   weekAvailability(),
			HospitalUserID: hosp.ID,
		}
		if err := repo.CreateDoctor(ctx, db, d); err != nil {
			return fmt.Errorf("seed fake doctor %d: %w", i, err)
		}
	}
	log.Info().Int("count", fakeDoctors).Msg("seeded fake doctors")
	return nil
}

func ensureUser(ctx context.Context, db *gorm.DB, a demoAccount) (*domain.User, bool, error) {
	u, err := repo.GetUserByEmail(ctx, db, a.email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	u, err = repo.CreateUser(ctx, db, a.email, string(hash), a.fullName, a.role)
	if err != nil {
		return nil, false, fmt.Errorf("seed %s: %w", a.email, err)
	}
	log.Info().Str("role", a.role).Str("user_id", u.ID).Msg("seeded demo account")
	return u, true, nil
}
