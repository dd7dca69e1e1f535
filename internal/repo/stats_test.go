package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/allodocteur/booking-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func allModels() []any {
	return []any{&domain.User{}, &domain.Doctor{}, &domain.Appointment{}, &domain.PaymentEvent{}, &domain.Idempotency{}}
}

// seedBasics inserts a hospital, a patient and one doctor owned by the hospital.
func seedBasics(t *testing.T, db *gorm.DB) (hospital, patient *domain.User, doctor *domain.Doctor) {
	t.Helper()
	ctx := context.Background()
	h, err := CreateUser(ctx, db, "hospital@demo.com", "x", "Hopital", domain.RoleHospital)
	if err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	p, err := CreateUser(ctx, db, "patient@demo.com", "x", "Patient", domain.RolePatient)
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	d := &domain.Doctor{FullName: "Dr Awa Diop", Specialty: "Généraliste", Clinic: "Clinique Saint Michel", City: "Dakar", PriceCfa: 10000, HospitalUserID: h.ID}
	if err := CreateDoctor(ctx, db, d); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	return h, p, d
}

func seedAppointment(t *testing.T, db *gorm.DB, patientID, doctorID string, at time.Time, status string) *domain.Appointment {
	t.Helper()
	a := &domain.Appointment{
		ID: fmt.Sprintf("a-%d", at.UnixNano()), PatientID: patientID, DoctorID: doctorID,
		DateTime: at.UTC(), Status: status, Currency: "xof",
	}
	if err := CreateAppointment(context.Background(), db, a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func TestAppointmentsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := AppointmentsStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing appointments table")
	}
}

func TestAppointmentsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, allModels()...)
	n, latest, err := AppointmentsStats(context.Background(), db, "nobody")
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("want (0, nil, nil), got (%d, %v, %v)", n, latest, err)
	}
}

func TestAppointmentsStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, allModels()...)
	_, p, d := seedBasics(t, db)
	base := time.Now().Add(24 * time.Hour)
	seedAppointment(t, db, p.ID, d.ID, base, domain.StatusPending)
	a2 := seedAppointment(t, db, p.ID, d.ID, base.Add(time.Hour), domain.StatusPending)

	later := time.Now().UTC().Add(time.Minute)
	if err := db.Model(&domain.Appointment{}).Where("id = ?", a2.ID).Update("updated_at", later).Error; err != nil {
		t.Fatalf("bump updated_at: %v", err)
	}

	n, latest, err := AppointmentsStats(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("AppointmentsStats: %v", err)
	}
	if n != 2 || latest == nil || latest.Sub(later).Abs() > time.Millisecond {
		t.Fatalf("unexpected stats n=%d latest=%v want %v", n, latest, later)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestAppointmentsStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, allModels()...)
	_, p, d := seedBasics(t, db)
	seedAppointment(t, db, p.ID, d.ID, time.Now().Add(time.Hour), domain.StatusPending)

	if err := db.Exec(`ALTER TABLE appointments RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}
	if _, _, err := AppointmentsStats(context.Background(), db, p.ID); err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestDoctorsStats_CountsNonDeleted(t *testing.T) {
	db := newTestDB(t, allModels()...)
	h, _, d := seedBasics(t, db)
	if err := DeleteDoctor(context.Background(), db, d.ID, h.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, latest, err := DoctorsStats(context.Background(), db)
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("want no listed doctors, got (%d, %v, %v)", n, latest, err)
	}
}

func TestHospitalStats(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	h, p, d := seedBasics(t, db)

	// A second hospital whose data must not leak into the first one's counts.
	h2, err := CreateUser(ctx, db, "other@demo.com", "x", "Other", domain.RoleHospital)
	if err != nil {
		t.Fatalf("seed h2: %v", err)
	}
	d2 := &domain.Doctor{FullName: "Dr X", Specialty: "s", Clinic: "c", City: "Thies", HospitalUserID: h2.ID}
	if err := CreateDoctor(ctx, db, d2); err != nil {
		t.Fatalf("seed d2: %v", err)
	}

	base := time.Now().Add(48 * time.Hour)
	seedAppointment(t, db, p.ID, d.ID, base, domain.StatusPending)
	seedAppointment(t, db, p.ID, d.ID, base.Add(time.Hour), domain.StatusConfirmed)
	seedAppointment(t, db, p.ID, d2.ID, base.Add(2*time.Hour), domain.StatusPending)

	got, err := HospitalStats(ctx, db, h.ID)
	if err != nil {
		t.Fatalf("HospitalStats: %v", err)
	}
	want := HospitalCounts{DoctorsCount: 1, AppointmentsCount: 2, PendingCount: 1}
	if got != want {
		t.Fatalf("HospitalStats = %+v; want %+v", got, want)
	}
}

func TestHospitalStats_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := HospitalStats(context.Background(), db, "h"); err == nil {
		t.Fatalf("expected error without schema")
	}
}
