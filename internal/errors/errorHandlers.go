package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnavailable         ErrorType = "SERVICE_UNAVAILABLE"
)

// CustomError carries an HTTP status and a client-safe message. Internal is
// logged, never returned.
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Internal
}

func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

func New401Error() *CustomError {
	return newError(ErrorTypeUnauthorized, "Unauthorized access", http.StatusUnauthorized, nil)
}

func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// New503Error reports a dependency that is configured off or unreachable.
func New503Error(message string, internal error) *CustomError {
	return newError(ErrorTypeUnavailable, message, http.StatusServiceUnavailable, internal)
}

// HandleError writes err as a JSON error body and aborts the chain. Errors
// that are not a *CustomError become a 500.
func HandleError(c *gin.Context, err error) {
	var customErr *CustomError
	if !stderrors.As(err, &customErr) {
		customErr = New500Error(err)
	}

	log := zerolog.Ctx(c.Request.Context())
	switch {
	case customErr.StatusCode >= http.StatusInternalServerError:
		log.Error().
			Err(customErr.Internal).
			Str("method", c.Request.Method).
			Str("url", c.Request.URL.String()).
			Msg("Internal Server Error")
	default:
		log.Debug().
			Str("type", string(customErr.Type)).
			Str("url", c.Request.URL.String()).
			Msg(customErr.Message)
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}
