package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/appointment"
	"github.com/medbook/booking-api/internal/service/user"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service        *user.Service
	appointmentSvc *appointment.Service
}

func NewHandler(service *user.Service, appointmentSvc *appointment.Service) *Handler {
	return &Handler{service: service, appointmentSvc: appointmentSvc}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	created, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, users)
}

func (h *Handler) GetProfile(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)
	httputil.RespondWithSuccess(c, http.StatusOK, currentUser)
}

func (h *Handler) GetMyAppointments(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)

	appointments, err := h.appointmentSvc.ListUserAppointments(c.Request.Context(), currentUser.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	currentUser := middleware.CurrentUser(c)

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	updated, err := h.service.UpdateUser(c.Request.Context(), currentUser.ID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	updated, err := h.service.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	users := r.Group("/users")
	{
		users.POST("", adminOnly, h.CreateUser)
		users.GET("", adminOnly, h.ListUsers)
		users.GET("/profile", h.GetProfile)
		users.GET("/appointments", h.GetMyAppointments)
		users.PATCH("/profile", h.UpdateProfile)
		users.GET("/:id", adminOnly, h.GetUser)
		users.PATCH("/:id", adminOnly, h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)
	}
}
