package doctor

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/doctor"
	"github.com/medbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *doctor.Service
}

func NewHandler(service *doctor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	created, err := h.service.CreateDoctor(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	var filters model.DoctorFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	list, err := h.service.ListDoctors(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) GetSpecializations(c *gin.Context) {
	specializations, err := h.service.GetSpecializations(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, specializations)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	d, err := h.service.GetDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{
			Status:  "error",
			Message: "date must be in YYYY-MM-DD format",
		})
		return
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), id, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	var req model.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	updated, err := h.service.UpdateDoctor(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.service.RemoveDoctor(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}

// RegisterRoutes wires the doctor directory. Reads are public, writes are
// admin only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticated, adminOnly gin.HandlerFunc) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", authenticated, adminOnly, h.CreateDoctor)
		doctors.GET("", h.ListDoctors)
		doctors.GET("/specializations", h.GetSpecializations)
		doctors.GET("/:id", h.GetDoctor)
		doctors.GET("/:id/available-slots", h.GetAvailableSlots)
		doctors.PATCH("/:id", authenticated, adminOnly, h.UpdateDoctor)
		doctors.DELETE("/:id", authenticated, adminOnly, h.DeleteDoctor)
	}
}
