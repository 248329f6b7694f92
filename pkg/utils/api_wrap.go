package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceIDOf(c *gin.Context) string {
	traceID, _ := c.Get("trace_id")
	s, _ := traceID.(string)
	return s
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	RespondWithStatus(c, http.StatusOK, data, message)
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	RespondWithStatus(c, http.StatusCreated, data, message)
}

func RespondWithStatus(c *gin.Context, code int, data interface{}, message string) {
	status := "success"
	if code >= http.StatusBadRequest {
		status = "error"
	}
	c.JSON(code, APIResponse{
		Status:  status,
		Code:    code,
		Message: message,
		TraceID: traceIDOf(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceIDOf(c),
	})
}

func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidPage):
		RespondError(c, http.StatusBadRequest, "Page must be greater than 0")
	case errors.Is(err, ErrInvalidPageSize):
		RespondError(c, http.StatusBadRequest, "Page size must be between 1 and 100")
	case errors.Is(err, ErrPartnerPlaceNotFound):
		RespondError(c, http.StatusNotFound, "Partner place not found")
	case errors.Is(err, ErrSyncInProgress):
		RespondError(c, http.StatusConflict, "A sync batch is already running")
	case errors.Is(err, ErrServiceUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "Search is temporarily unavailable")
	case errors.Is(err, ErrSyncFailed), errors.Is(err, ErrIndexUnavailable):
		_ = c.Error(err)
		RespondError(c, http.StatusServiceUnavailable, "Vector index is unavailable, the place stays queued for sync")
	case errors.Is(err, ErrDatabaseError):
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
