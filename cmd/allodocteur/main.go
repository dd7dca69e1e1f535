// Command allodocteur runs the AlloDocteur booking API and its maintenance
// tasks.
//
//	allodocteur serve            start the HTTP API
//	allodocteur migrate          create or update the schema
//	allodocteur seed             load demo accounts (and optional fake doctors)
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/docs"
	"github.com/allodocteur/booking-backend/internal/auth"
	"github.com/allodocteur/booking-backend/internal/config"
	"github.com/allodocteur/booking-backend/internal/events"
	httpapi "github.com/allodocteur/booking-backend/internal/http"
	"github.com/allodocteur/booking-backend/internal/notify"
	"github.com/allodocteur/booking-backend/internal/observability"
	"github.com/allodocteur/booking-backend/internal/payment"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/services"
	"github.com/allodocteur/booking-backend/internal/slotlock"
	"github.com/allodocteur/booking-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		cfg     config.Config
	)

	root := &cobra.Command{
		Use:           "allodocteur",
		Short:         "AlloDocteur appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(serveCmd(&cfg), migrateCmd(&cfg), seedCmd(&cfg))
	return root
}

func serveCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err := runServer(ctx, *cfg, sysutil.FirstNonEmpty(addr, ":"+cfg.Port))
			if err != nil {
				log.Error().Err(err).Msg("server stopped")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to :$PORT)")
	return cmd
}

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(*cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			log.Info().Str("driver", cfg.DB.Driver).Msg("schema up to date")
			return nil
		},
	}
}

func seedCmd(cfg *config.Config) *cobra.Command {
	var fakeDoctors int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo hospital, patient and doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(*cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return seedDemo(ctx, db, fakeDoctors)
		},
	}
	cmd.Flags().IntVar(&fakeDoctors, "fake-doctors", 0, "additional generated doctors for the demo hospital")
	return cmd
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// collaborators are the optional outside services behind the lifecycle
// coordinator. Missing configuration selects the in-process fallback.
type collaborators struct {
	locker    slotlock.Locker
	publisher events.Publisher
	notifier  notify.Notifier
	gateway   *payment.StripeGateway
	redis     *redis.Client
}

func connect(cfg config.Config) (*collaborators, error) {
	c := &collaborators{
		locker:    slotlock.NewLocal(),
		publisher: events.Nop{},
		notifier:  notify.LogNotifier{},
		gateway:   payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
	}

	if cfg.Redis.Addr != "" {
		rdb, err := slotlock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
		c.locker = slotlock.NewRedis(rdb, cfg.Redis.LockTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set: slot locks are process-local")
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			c.close()
			return nil, err
		}
		c.publisher = pub
	}

	if m := notify.NewMailer(cfg.Mail); m.Enabled() {
		c.notifier = m
	} else {
		log.Warn().Msg("mail not configured: emails are logged, not sent")
	}

	if !c.gateway.Configured() {
		log.Warn().Msg("STRIPE_SECRET_KEY not set: paid bookings are disabled")
	}
	return c, nil
}

func (c *collaborators) readyChecks() map[string]func(context.Context) error {
	if c.redis == nil {
		return nil
	}
	return map[string]func(context.Context) error{
		"redis": func(ctx context.Context) error { return c.redis.Ping(ctx).Err() },
	}
}

func (c *collaborators) close() {
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
}

func runServer(ctx context.Context, cfg config.Config, addr string) error {
	gin.SetMode(cfg.GinMode)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version, cfg.GinMode)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	deps, err := connect(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	appts := services.NewAppointmentService(db, deps.gateway, deps.notifier, deps.publisher, deps.locker,
		services.AppointmentConfig{
			FrontendURL:    cfg.FrontendURL,
			ConfirmBaseURL: cfg.PublicURL + apiPrefix(cfg.APIBasePath),
			Currency:       cfg.Stripe.Currency,
			IdempotencyTTL: cfg.IdempotencyTTL,
		})

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = version

	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, httpapi.Deps{
		DB:           db,
		Tokens:       auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL),
		Appointments: appts,
		ReadyChecks:  deps.readyChecks(),
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("api", cfg.APIBasePath).
			Bool("payments", cfg.PaymentsEnabled()).
			Str("version", version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func apiPrefix(base string) string {
	if base == "/" {
		return ""
	}
	return base
}
