package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medbook/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response, hiding internals for unexpected failures
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.Error(err)
		c.JSON(appErr.StatusCode(), Response{
			Status:  "error",
			Message: appErr.Message,
		})
		return
	}

	c.Error(err)
	c.JSON(http.StatusInternalServerError, Response{
		Status:  "error",
		Message: "internal server error",
	})
}

// RespondWithValidationError sends a 400 with the binding error message
func RespondWithValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Status:  "error",
		Message: err.Error(),
	})
}
