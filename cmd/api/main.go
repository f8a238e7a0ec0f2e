package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/config"
	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/handler"
	appointmentHandler "github.com/medbook/booking-api/internal/handler/appointment"
	authHandler "github.com/medbook/booking-api/internal/handler/auth"
	doctorHandler "github.com/medbook/booking-api/internal/handler/doctor"
	userHandler "github.com/medbook/booking-api/internal/handler/user"
	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/repository/postgres"
	redisRepo "github.com/medbook/booking-api/internal/repository/redis"
	"github.com/medbook/booking-api/internal/router"
	appointmentService "github.com/medbook/booking-api/internal/service/appointment"
	authService "github.com/medbook/booking-api/internal/service/auth"
	doctorService "github.com/medbook/booking-api/internal/service/doctor"
	userService "github.com/medbook/booking-api/internal/service/user"
	"github.com/medbook/booking-api/pkg/auth"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis for the token revocation list
	redisClient, err := redisRepo.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	tokenStore := redisRepo.NewTokenStore(redisClient)

	// Initialize email delivery
	var emailSvc email.Service = email.NoopService{}
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewSMTPService(cfg.SMTP)
	} else {
		log.Warn().Msg("smtp host not configured, email notifications disabled")
	}

	// Initialize services
	jwtSvc := auth.NewJWTService(cfg.JWT)
	userSvc := userService.NewService(userRepo)
	doctorSvc := doctorService.NewService(doctorRepo, appointmentRepo)
	appointmentSvc := appointmentService.NewService(appointmentRepo, doctorRepo, userRepo, emailSvc)
	authSvc := authService.NewService(userSvc, jwtSvc, tokenStore)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authSvc, userSvc)

	// Initialize handlers
	h := handler.NewHandler(db, redisClient)
	authH := authHandler.NewHandler(authSvc)
	userH := userHandler.NewHandler(userSvc, appointmentSvc)
	doctorH := doctorHandler.NewHandler(doctorSvc)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		authH,
		userH,
		doctorH,
		appointmentH,
		h,
		router.RouterConfig{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "booking_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
