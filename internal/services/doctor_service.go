// Package services – DoctorService
//
// DoctorService owns the public doctor directory and the hospital-side
// roster management. Directory filters are accent-insensitive, and free-text
// queries are ranked with the in-memory search index built over each
// doctor's name, specialty, clinic, city and profile notes.
//
// Hospital mutations are scoped to the caller: another hospital's doctor is
// reported as not found, never as forbidden.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/search"
	"github.com/allodocteur/booking-backend/internal/utils"
)

// DoctorRepo defines the repository contract required by DoctorService.
type DoctorRepo interface {
	// CreateDoctor inserts a new doctor row.
	CreateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error

	// GetDoctor fetches a listed doctor by id.
	GetDoctor(ctx context.Context, db *gorm.DB, id string) (*domain.Doctor, error)

	// GetOwnedDoctor fetches a doctor only if hospitalUserID owns it.
	GetOwnedDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) (*domain.Doctor, error)

	// ListDoctors returns doctors matching the filter, newest first.
	ListDoctors(ctx context.Context, db *gorm.DB, f repo.DoctorFilter) ([]domain.Doctor, error)

	// UpdateDoctor persists profile fields of an owned doctor.
	UpdateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error

	// DeleteDoctor soft-deletes an owned doctor.
	DeleteDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) error
}

// directoryStopwords are dropped from both profiles and queries.
var directoryStopwords = []string{
	"dr", "docteur", "de", "du", "des", "la", "le", "les", "et", "en", "a", "au", "aux", "un", "une", "pour",
}

// DoctorService provides directory search and hospital roster operations.
type DoctorService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the doctor repository used by this service.
	Repo DoctorRepo

	// MinScore drops weak free-text matches (0 keeps any overlap).
	MinScore float64
	// Locale drives title-casing of city names.
	Locale language.Tag
}

// NewDoctorService constructs a DoctorService with French title-casing.
func NewDoctorService(db *gorm.DB, r DoctorRepo) *DoctorService {
	return &DoctorService{DB: db, Repo: r, Locale: language.French}
}

// DirectoryQuery narrows List. Empty fields are ignored.
type DirectoryQuery struct {
	Specialty string
	City      string
	Q         string
	Page      int
	PageSize  int
}

// List returns a page of the directory. Without a free-text query the order
// is newest first; with one, best match first.
func (s *DoctorService) List(ctx context.Context, q DirectoryQuery) ([]domain.Doctor, int64, error) {
	ctx, span := otel.Tracer("services/DoctorService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("filter.specialty", q.Specialty),
			attribute.String("filter.city", q.City),
			attribute.Bool("query", q.Q != ""),
		),
	)
	defer span.End()

	all, err := s.Repo.ListDoctors(ctx, s.DB, repo.DoctorFilter{})
	if err != nil {
		return nil, 0, err
	}

	spec, city := search.Fold(q.Specialty), search.Fold(q.City)
	filtered := all[:0]
	for _, d := range all {
		if spec != "" && search.Fold(d.Specialty) != spec {
			continue
		}
		if city != "" && search.Fold(d.City) != city {
			continue
		}
		filtered = append(filtered, d)
	}

	if strings.TrimSpace(q.Q) != "" {
		filtered = s.rank(filtered, q.Q)
	}
	span.SetAttributes(attribute.Int("results", len(filtered)))
	return paginate(filtered, q.Page, q.PageSize)
}

// rank orders docs by relevance to query and drops non-matches.
func (s *DoctorService) rank(docs []domain.Doctor, query string) []domain.Doctor {
	byID := make(map[string]domain.Doctor, len(docs))
	in := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
		in = append(in, search.Document{ID: d.ID, Text: profileText(d)})
	}
	idx := search.New(in, search.WithStopwords(directoryStopwords), search.WithMinScore(s.MinScore))
	hits := idx.TopK(query, 0)
	out := make([]domain.Doctor, 0, len(hits))
	for _, h := range hits {
		out = append(out, byID[h.ID])
	}
	return out
}

func profileText(d domain.Doctor) string {
	parts := []string{d.FullName, d.Specialty, d.Clinic, d.City}
	parts = append(parts, d.About...)
	return strings.Join(parts, " ")
}

func paginate(items []domain.Doctor, page, pageSize int) ([]domain.Doctor, int64, error) {
	total := int64(len(items))
	_, pageSize, start := utils.PageWindow(page, pageSize, 0)
	if start >= len(items) {
		return []domain.Doctor{}, total, nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

// Get returns a listed doctor.
func (s *DoctorService) Get(ctx context.Context, id string) (*domain.Doctor, error) {
	d, err := s.Repo.GetDoctor(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListOwned returns every doctor of the hospital, newest first.
func (s *DoctorService) ListOwned(ctx context.Context, hospitalUserID string) ([]domain.Doctor, error) {
	return s.Repo.ListDoctors(ctx, s.DB, repo.DoctorFilter{HospitalUserID: hospitalUserID})
}

// DoctorInput is the editable part of a doctor profile.
type DoctorInput struct {
	FullName     string
	Specialty    string
	Clinic       string
	City         string
	PriceCfa     int64
	About        []string
	Availability []domain.DayAvailability
}

func (s *DoctorService) normalize(in DoctorInput) (DoctorInput, error) {
	in.FullName = collapseSpaces(in.FullName)
	in.Specialty = collapseSpaces(in.Specialty)
	in.Clinic = collapseSpaces(in.Clinic)
	in.City = cases.Title(s.Locale, cases.NoLower).String(collapseSpaces(in.City))
	if in.FullName == "" || in.Specialty == "" || in.Clinic == "" || in.City == "" || in.PriceCfa < 0 {
		return in, ErrInvalidDoctor
	}
	about := make([]string, 0, len(in.About))
	for _, a := range in.About {
		if a = collapseSpaces(a); a != "" {
			about = append(about, a)
		}
	}
	in.About = about
	if in.Availability == nil {
		in.Availability = []domain.DayAvailability{}
	}
	return in, nil
}

// Create adds a doctor to the hospital's roster.
func (s *DoctorService) Create(ctx context.Context, hospitalUserID string, in DoctorInput) (*domain.Doctor, error) {
	ctx, span := otel.Tracer("services/DoctorService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("hospital.id", hospitalUserID)),
	)
	defer span.End()

	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	d := &domain.Doctor{
		FullName:       in.FullName,
		Specialty:      in.Specialty,
		Clinic:         in.Clinic,
		City:           in.City,
		PriceCfa:       in.PriceCfa,
		About:          in.About,
		Availability:   in.Availability,
		HospitalUserID: hospitalUserID,
	}
	if err := s.Repo.CreateDoctor(ctx, s.DB, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Update replaces the profile of an owned doctor.
func (s *DoctorService) Update(ctx context.Context, hospitalUserID, id string, in DoctorInput) (*domain.Doctor, error) {
	ctx, span := otel.Tracer("services/DoctorService").Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("hospital.id", hospitalUserID),
			attribute.String("doctor.id", id),
		),
	)
	defer span.End()

	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	d, err := s.Repo.GetOwnedDoctor(ctx, s.DB, id, hospitalUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	d.FullName, d.Specialty, d.Clinic, d.City = in.FullName, in.Specialty, in.Clinic, in.City
	d.PriceCfa, d.About, d.Availability = in.PriceCfa, in.About, in.Availability
	if err := s.Repo.UpdateDoctor(ctx, s.DB, d); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return d, nil
}

// Delete removes an owned doctor from the directory. Past appointments keep
// their doctor reference.
func (s *DoctorService) Delete(ctx context.Context, hospitalUserID, id string) error {
	if err := s.Repo.DeleteDoctor(ctx, s.DB, id, hospitalUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	return nil
}

// collapseSpaces trims s and collapses runs of whitespace to one space.
func collapseSpaces(s string) string { return strings.Join(strings.Fields(s), " ") }
