// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/allodocteur/booking-backend/docs"
	"github.com/allodocteur/booking-backend/internal/auth"
	"github.com/allodocteur/booking-backend/internal/config"
	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/http/handlers"
	"github.com/allodocteur/booking-backend/internal/http/middleware"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/services"
)

// Login attempts are limited per client IP on top of the global limiter.
const (
	loginRPS   = 0.2
	loginBurst = 5
)

// doctorRepoShim adapts the repository free functions to the
// services.DoctorRepo interface expected by the DoctorService.
type doctorRepoShim struct{}

func (doctorRepoShim) CreateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error {
	return repo.CreateDoctor(ctx, db, d)
}

func (doctorRepoShim) GetDoctor(ctx context.Context, db *gorm.DB, id string) (*domain.Doctor, error) {
	return repo.GetDoctor(ctx, db, id)
}

func (doctorRepoShim) GetOwnedDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) (*domain.Doctor, error) {
	return repo.GetOwnedDoctor(ctx, db, id, hospitalUserID)
}

func (doctorRepoShim) ListDoctors(ctx context.Context, db *gorm.DB, f repo.DoctorFilter) ([]domain.Doctor, error) {
	return repo.ListDoctors(ctx, db, f)
}

func (doctorRepoShim) UpdateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error {
	return repo.UpdateDoctor(ctx, db, d)
}

func (doctorRepoShim) DeleteDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) error {
	return repo.DeleteDoctor(ctx, db, id, hospitalUserID)
}

// Deps carries what the router cannot build from Config alone.
type Deps struct {
	DB     *gorm.DB
	Tokens *auth.Issuer
	// Appointments is the lifecycle coordinator, built by the caller with
	// its payment, mail, event and lock collaborators.
	Appointments *services.AppointmentService
	// ReadyChecks are probed by /ready next to the database, keyed by name
	// (e.g. "redis").
	ReadyChecks map[string]func(context.Context) error
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (scrubs tokens, emails and phone numbers)
//  4. Recovery
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Authenticate (bearer token, never rejects)
//  8. Idempotency validator (needs the user id, runs before rate limiting)
//  9. CORS and security headers
//
// The token-bucket limiter is attached to the API group only, so the payment
// provider's webhook and the ops probes are never throttled.
func RegisterRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{handlers.SignatureHeader},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/webhooks"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.Authenticate(d.Tokens))
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, d.DB, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	base := cfg.APIBasePath
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		NoStorePrefixes: []string{
			joinPath(base, "/auth"),
			joinPath(base, "/appointments"),
			joinPath(base, "/payments"),
			joinPath(base, "/hospital"),
		},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readyHandler(d))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	dirSvc := services.NewDoctorService(d.DB, doctorRepoShim{})
	h := handlers.New(
		&services.AuthService{DB: d.DB, Tokens: d.Tokens},
		dirSvc,
		&services.HospitalService{DB: d.DB},
		d.Appointments,
		cfg.FrontendURL,
	)

	// The payment provider posts here; the signature is the only credential.
	r.POST("/webhooks/stripe", h.StripeWebhook)

	rl := middleware.NewRateLimiter("api", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	loginRL := middleware.NewRateLimiter("login", loginRPS, loginBurst, middleware.KeyByIP())

	api := groupWithPrefix(r, base)
	api.Use(rl.Handler())
	{
		a := api.Group("/auth")
		a.POST("/register", h.Register)
		a.POST("/login", loginRL.Handler(), h.Login)

		api.GET("/doctors", h.ListDoctors)
		api.GET("/doctors/:id", h.GetDoctor)

		// Emailed link: the token is the credential.
		api.GET("/appointments/confirm", h.ConfirmAppointment)

		patient := api.Group("", middleware.RequireRole(domain.RolePatient))
		patient.POST("/appointments", h.CreateAppointment)
		patient.GET("/appointments/me", h.ListMyAppointments)
		patient.PATCH("/appointments/:id/cancel", h.CancelAppointment)
		patient.POST("/payments/checkout-session", h.CreateCheckoutSession)
		patient.GET("/payments/session/:sessionId", h.GetCheckoutSession)

		hosp := api.Group("/hospital", middleware.RequireRole(domain.RoleHospital))
		hosp.GET("/stats", h.HospitalStats)
		hosp.GET("/appointments", h.HospitalAppointments)
		hosp.GET("/doctors", h.ListOwnedDoctors)
		hosp.POST("/doctors", h.CreateDoctor)
		hosp.PUT("/doctors/:id", h.UpdateDoctor)
		hosp.DELETE("/doctors/:id", h.DeleteDoctor)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// readyHandler reports 503 with the failing dependencies when the database
// or any extra check does not answer.
func readyHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failing := map[string]string{}
		if err := repo.Ping(d.DB.WithContext(ctx)); err != nil {
			failing["db"] = err.Error()
		}
		names := make([]string, 0, len(d.ReadyChecks))
		for name := range d.ReadyChecks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := d.ReadyChecks[name](ctx); err != nil {
				failing[name] = err.Error()
			}
		}

		if len(failing) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failing": failing})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// limitBody caps the request body size using http.MaxBytesReader. Requests
// exceeding the cap make downstream body reads fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "/" {
		return p
	}
	return base + p
}
