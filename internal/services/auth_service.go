package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/auth"
	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/repo"
)

const (
	minPasswordLen = 6
	minNameRunes   = 2
)

// validate applies the same rules as the request binding tags for callers
// that do not come through HTTP.
var validate = validator.New()

// Session is what a successful login returns to the SPA.
type Session struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// AuthService registers patients and exchanges credentials for tokens.
type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.Issuer

	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

// Register creates a PATIENT account. Hospital accounts are provisioned by
// the seed command.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Register")
	defer span.End()

	email = repo.NormalizeEmail(email)
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	fullName = collapseSpaces(fullName)
	if utf8.RuneCountInString(fullName) < minNameRunes {
		return nil, ErrInvalidName
	}

	hash, err := HashPassword(password, s.Cost)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, hash, fullName, domain.RolePatient)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return u, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login")
	defer span.End()

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	tok, err := s.Tokens.Issue(u.ID, u.Role, u.Email, u.FullName)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("user.id", u.ID),
		attribute.String("user.role", u.Role),
	)
	return &Session{Token: tok, Role: u.Role, FullName: u.FullName, Email: u.Email}, nil
}

// HashPassword bcrypts a password. cost <= 0 uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
