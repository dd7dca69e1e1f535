// Package handlers exposes the booking API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// and service errors into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService registers patients and issues access tokens.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
}

// DirectoryService reads the public doctor directory and manages a
// hospital's own roster.
type DirectoryService interface {
	List(ctx context.Context, q services.DirectoryQuery) ([]domain.Doctor, int64, error)
	Get(ctx context.Context, id string) (*domain.Doctor, error)
	ListOwned(ctx context.Context, hospitalUserID string) ([]domain.Doctor, error)
	Create(ctx context.Context, hospitalUserID string, in services.DoctorInput) (*domain.Doctor, error)
	Update(ctx context.Context, hospitalUserID, id string, in services.DoctorInput) (*domain.Doctor, error)
	Delete(ctx context.Context, hospitalUserID, id string) error
}

// HospitalService backs the hospital dashboard.
type HospitalService interface {
	Stats(ctx context.Context, hospitalUserID string) (repo.HospitalCounts, error)
	Appointments(ctx context.Context, hospitalUserID string) ([]domain.Appointment, error)
}

// AppointmentService drives the appointment lifecycle.
//
// Implementations must be safe for concurrent use and honor ctx.
type AppointmentService interface {
	Create(ctx context.Context, in services.CreateInput) (*services.CreateResult, error)
	ConfirmByToken(ctx context.Context, token string) (*services.ConfirmResult, error)
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (*services.PaymentOutcome, error)
	Cancel(ctx context.Context, appointmentID, patientID string) (*domain.Appointment, error)
	ListMine(ctx context.Context, patientID string, page, pageSize int) ([]domain.Appointment, int64, error)
	GetByCheckoutSession(ctx context.Context, sessionID, patientID string) (*domain.Appointment, error)
}

//
// Handler wiring
//

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	authSvc  AuthService
	dirSvc   DirectoryService
	hospSvc  HospitalService
	apptSvc  AppointmentService
	frontend string
}

// New constructs Handlers. frontendURL is where confirmation links land
// after the token has been consumed.
func New(authSvc AuthService, dirSvc DirectoryService, hospSvc HospitalService, apptSvc AppointmentService, frontendURL string) *Handlers {
	return &Handlers{
		authSvc:  authSvc,
		dirSvc:   dirSvc,
		hospSvc:  hospSvc,
		apptSvc:  apptSvc,
		frontend: strings.TrimRight(frontendURL, "/"),
	}
}

// statsDB returns the store behind a concrete service so list endpoints can
// compute ETags before fetching a page. Stubs yield nil and skip ETags.
func statsDB(svc any) *gorm.DB {
	switch s := svc.(type) {
	case *services.AppointmentService:
		return s.DB
	case *services.DoctorService:
		return s.DB
	}
	return nil
}
