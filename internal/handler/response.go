package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps the application error taxonomy onto HTTP statuses.
// Business rejections keep their message so the client can tell which rule
// failed; internal errors are masked.
func RespondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)

	var status int
	switch code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrBadRequest, apperrors.ErrTenantMismatch:
		status = http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
	case apperrors.ErrOutsideAvailability, apperrors.ErrSlotConflict,
		apperrors.ErrConflict, apperrors.ErrConstraintViolation:
		status = http.StatusConflict
	case apperrors.ErrTimeout:
		status = http.StatusGatewayTimeout
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	message := err.Error()
	if appErr, ok := err.(*apperrors.AppError); ok {
		message = appErr.Message
	}
	c.JSON(status, NewErrorResponse(message))
}
