package router

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medbook/booking-api/internal/handler"
	appointmenthandler "github.com/medbook/booking-api/internal/handler/appointment"
	authhandler "github.com/medbook/booking-api/internal/handler/auth"
	doctorhandler "github.com/medbook/booking-api/internal/handler/doctor"
	userhandler "github.com/medbook/booking-api/internal/handler/user"
	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/model"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        *authhandler.Handler
	userH        *userhandler.Handler
	doctorH      *doctorhandler.Handler
	appointmentH *appointmenthandler.Handler
	h            *handler.Handler
	metrics      *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authhandler.Handler,
	userH *userhandler.Handler,
	doctorH *doctorhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	registerCustomValidators()

	metrics := initRouterMetrics(config.MetricsPrefix)

	r := &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		userH:        userH,
		doctorH:      doctorH,
		appointmentH: appointmentH,
		h:            h,
		metrics:      metrics,
	}

	engine.Use(
		gin.Recovery(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		r.metricsMiddleware(),
		middleware.RequestID(),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   config.RateLimitRPS,
		Burst: config.RateLimitBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	authenticated := r.auth.Authenticate()
	adminOnly := r.auth.RequireRole(model.RoleAdmin)

	// Auth and the doctor directory are reachable without a token; the
	// handlers gate their own write endpoints.
	r.authH.RegisterRoutes(api, authenticated)
	r.doctorH.RegisterRoutes(api, authenticated, adminOnly)

	protected := api.Group("")
	protected.Use(authenticated)

	r.userH.RegisterRoutes(protected, adminOnly)
	r.appointmentH.RegisterRoutes(protected, adminOnly)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// registerCustomValidators adds the hhmm tag used by doctor schedule
// requests (24h wall-clock times like "09:00").
func registerCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
