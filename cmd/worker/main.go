package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/config"
	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/repository/postgres"
)

var (
	sentReminders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "appointment_reminders_sent_total",
		Help: "The total number of reminder emails sent",
	})
	failedReminders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "appointment_reminders_failed_total",
		Help: "The total number of reminder emails that failed to send",
	})
	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reminder_poll_duration_seconds",
		Help:    "Time spent per reminder poll cycle",
		Buckets: prometheus.DefBuckets,
	})
)

// WorkerConfig is read from the environment so the worker can run without a
// config file next to it.
type WorkerConfig struct {
	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"100"`
	ReminderLead time.Duration `envconfig:"REMINDER_LEAD" default:"24h"`
	HealthPort   int           `envconfig:"HEALTH_PORT" default:"8081"`
	SMTPHost     string        `envconfig:"SMTP_HOST"`
	SMTPPort     int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string        `envconfig:"SMTP_USERNAME"`
	SMTPPassword string        `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string        `envconfig:"SMTP_FROM"`
}

type ReminderWorker struct {
	repo     repository.AppointmentRepository
	userRepo repository.UserRepository
	emailSvc email.Service
	cfg      WorkerConfig
}

func NewReminderWorker(repo repository.AppointmentRepository, userRepo repository.UserRepository,
	emailSvc email.Service, cfg WorkerConfig) *ReminderWorker {
	return &ReminderWorker{
		repo:     repo,
		userRepo: userRepo,
		emailSvc: emailSvc,
		cfg:      cfg,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	log.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("reminder worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reminder worker shutting down")
			return
		case <-ticker.C:
			if err := w.processReminders(ctx); err != nil {
				log.Error().Err(err).Msg("error processing reminders")
			}
		}
	}
}

func (w *ReminderWorker) processReminders(ctx context.Context) error {
	timer := prometheus.NewTimer(pollDuration)
	defer timer.ObserveDuration()

	due, err := w.repo.ListDueReminders(ctx, w.cfg.ReminderLead, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due reminders: %w", err)
	}

	for _, appointment := range due {
		patient, err := w.userRepo.Get(ctx, appointment.PatientID)
		if err != nil {
			failedReminders.Inc()
			log.Error().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to load patient for reminder")
			continue
		}

		doctorName := ""
		if appointment.DoctorName != nil {
			doctorName = *appointment.DoctorName
		}

		if err := w.emailSvc.SendReminder(ctx, patient.Email, doctorName, appointment.StartTime); err != nil {
			failedReminders.Inc()
			log.Error().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send reminder")
			continue
		}

		// Mark first failure-free send so a later poll does not resend.
		if err := w.repo.MarkReminderSent(ctx, appointment.ID); err != nil {
			log.Error().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to mark reminder sent")
			continue
		}

		sentReminders.Inc()
		log.Info().
			Str("appointment_id", appointment.ID.String()).
			Time("start_time", appointment.StartTime).
			Msg("reminder sent")
	}

	return nil
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	var cfg WorkerConfig
	if err := envconfig.Process("reminder", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var emailSvc email.Service = email.NoopService{}
	if cfg.SMTPHost != "" {
		emailSvc = email.NewSMTPService(config.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Warn().Msg("smtp host not configured, reminders will be dropped")
	}

	worker := NewReminderWorker(
		postgres.NewAppointmentRepository(db),
		postgres.NewUserRepository(db),
		emailSvc,
		cfg,
	)

	setupHealthCheck(cfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	worker.Start(ctx)
}
