package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicops/booking-platform/internal/api/router"
	"github.com/clinicops/booking-platform/internal/appointments"
	"github.com/clinicops/booking-platform/internal/booking"
	"github.com/clinicops/booking-platform/internal/clinic"
	appconfig "github.com/clinicops/booking-platform/internal/config"
	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/idempotency"
	"github.com/clinicops/booking-platform/internal/locking"
	"github.com/clinicops/booking-platform/internal/notify"
	"github.com/clinicops/booking-platform/internal/observability/metrics"
	"github.com/clinicops/booking-platform/internal/patients"
	"github.com/clinicops/booking-platform/internal/tenancy"
	"github.com/clinicops/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Shared tenant-scoped datastore behind the scoping guard.
	guard := tenancy.NewGuard(datastore.New(), []string{
		appointments.Collection,
		patients.Collection,
		notify.Collection,
	})

	clinics := clinic.NewStore()
	if cfg.Env == "development" {
		seedDemoClinic(logger, clinics, cfg)
	}

	// Redis is optional: without it the slot lock and notification counter
	// fall back to in-process implementations, which is correct for a
	// single node.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, using in-process lock and counter", "error", err)
			redisClient = nil
		}
	}

	var locker locking.Locker = locking.NewMemoryLocker()
	var counter notify.DailyCounter = notify.NewMemoryDailyCounter()
	if redisClient != nil {
		locker = locking.NewRedisLocker(redisClient, cfg.SlotLockTTL)
		counter = notify.NewRedisDailyCounter(redisClient, logger)
	}

	var apptRepo appointments.Repository = appointments.NewGuardRepository(guard)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		apptRepo = appointments.NewPgRepository(pool)
		logger.Info("appointments backed by postgres")
	}

	bookingMetrics := metrics.NewBookingMetrics(nil)

	var email notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		email = sg
	}

	notifyService := notify.NewService(notify.Deps{
		Store:    notify.NewStore(guard),
		Ledger:   idempotency.NewLedger(),
		Counter:  counter,
		Email:    email,
		SMS:      notify.NewStubSMSSender(logger),
		Metrics:  bookingMetrics,
		Logger:   logger,
		DailyCap: cfg.NotificationDailyCap,
	})

	bookingService := booking.NewService(booking.Deps{
		Clinics:       clinics,
		Appointments:  apptRepo,
		Patients:      patients.NewRepository(guard),
		Ledger:        idempotency.NewLedger(),
		Locker:        locker,
		Metrics:       bookingMetrics,
		Logger:        logger,
		Confirmations: notify.NewConfirmationNotifier(notifyService),
		Defaults: clinic.BookingRules{
			LeadTimeMinutes: cfg.DefaultLeadTimeMinutes,
			MaxAdvanceDays:  cfg.DefaultMaxAdvanceDays,
			SlotStepMinutes: cfg.DefaultSlotStepMinutes,
		},
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(bookingService, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// seedDemoClinic registers a sample clinic so the public API is usable
// immediately in development.
func seedDemoClinic(logger *logging.Logger, clinics *clinic.Store, cfg *appconfig.Config) {
	c, err := clinics.Register(context.Background(), clinic.Clinic{
		Slug:     "demo-clinic",
		Name:     "Demo Clinic",
		Timezone: "Asia/Manila",
		Currency: "PHP",
		Hours:    clinic.WeekdayHours("09:00", "17:00"),
		Rules: clinic.BookingRules{
			LeadTimeMinutes: cfg.DefaultLeadTimeMinutes,
			MaxAdvanceDays:  cfg.DefaultMaxAdvanceDays,
			SlotStepMinutes: cfg.DefaultSlotStepMinutes,
		},
	})
	if err != nil {
		logger.Warn("demo clinic not seeded", "error", err)
		return
	}
	svc, err := clinics.AddService(context.Background(), clinic.Service{
		ClinicID:        c.ID,
		Name:            "Consultation",
		DurationMinutes: 30,
		Active:          true,
	})
	if err != nil {
		logger.Warn("demo service not seeded", "error", err)
		return
	}
	logger.Info("seeded demo clinic", "clinic_slug", c.Slug, "service_id", svc.ID)
}
