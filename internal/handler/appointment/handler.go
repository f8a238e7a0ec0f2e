package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/appointment"
	apperrors "github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	created, err := h.service.CreateAppointment(c.Request.Context(), &req, currentUser)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.service.ListAppointments(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetMyAppointments(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	appointments, err := h.service.ListUserAppointments(c.Request.Context(), currentUser.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetUpcomingAppointments(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	appointments, err := h.service.ListUpcomingAppointments(c.Request.Context(), currentUser.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetDoctorAppointments(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	startDate, err := parseDateQuery(c, "start_date")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	endDate, err := parseDateQuery(c, "end_date")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, err := h.service.ListDoctorAppointments(c.Request.Context(), doctorID, startDate, endDate)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	a, err := h.service.GetAppointment(c.Request.Context(), id, currentUser)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	updated, err := h.service.UpdateAppointment(c.Request.Context(), id, &req, currentUser)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	currentUser := middleware.CurrentUser(c)
	if currentUser == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication required"))
		return
	}

	cancelled, err := h.service.CancelAppointment(c.Request.Context(), id, currentUser)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, cancelled)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.service.DeleteAppointment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, apperrors.BadRequest(name + " must be in YYYY-MM-DD format")
	}
	return &t, nil
}

// RegisterRoutes wires the appointment endpoints. Everything here requires
// authentication; the literal routes are declared before the :id routes so
// gin does not treat "my" or "upcoming" as an id.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", adminOnly, h.ListAppointments)
		appointments.GET("/my", h.GetMyAppointments)
		appointments.GET("/upcoming", h.GetUpcomingAppointments)
		appointments.GET("/doctor/:doctorId", adminOnly, h.GetDoctorAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", adminOnly, h.DeleteAppointment)
	}
}
