package common

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the standard API envelope.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SuccessResponse sends a 200 response with a data payload.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// CreatedResponse sends a 201 response with a data payload.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// ErrorResponse sends an error envelope with the given status code.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success:   false,
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// AppErrorResponse sends an AppError as an error envelope.
func AppErrorResponse(c *gin.Context, err *AppError) {
	c.JSON(err.Code, Response{
		Success:   false,
		Error:     http.StatusText(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Timestamp: time.Now().UTC(),
	})
}

// HandleServiceError writes an error response for a service failure and
// reports whether an error was handled.
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*AppError); ok {
		AppErrorResponse(c, appErr)
		return true
	}
	ErrorResponse(c, http.StatusInternalServerError, fallbackMessage)
	return true
}
