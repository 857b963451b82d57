package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	"github.com/smallbiznis/microgrid/internal/auth/password"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Type    string            `json:"type"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

// requestError is a malformed request the handler rejected itself.
type requestError struct {
	field   string
	message string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalidRequest(field, message string) error {
	return &requestError{field: field, message: message}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var lerr *lifecycle.Error
	if errors.As(err, &lerr) {
		return mapLifecycleError(lerr)
	}

	var rerr *requestError
	if errors.As(err, &rerr) {
		return http.StatusBadRequest, errorResponse{
			Error:  rerr.message,
			Type:   "validation_error",
			Errors: []ValidationError{{Field: rerr.field, Code: "invalid_request", Message: rerr.message}},
		}
	}

	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid username or password", Type: "unauthorized"}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Type: "unauthorized"}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Type: "forbidden"}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorResponse{Error: "User already exists", Type: "conflict"}
	case errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "User not found", Type: "not_found"}
	case errors.Is(err, authdomain.ErrNotOperator),
		errors.Is(err, authdomain.ErrInvalidRole),
		errors.Is(err, authdomain.ErrInvalidHamlet),
		errors.Is(err, password.ErrTooShort):
		return http.StatusBadRequest, errorResponse{
			Error:  err.Error(),
			Type:   "validation_error",
			Errors: []ValidationError{{Field: authField(err), Code: err.Error(), Message: err.Error()}},
		}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Type: "internal_error"}
	}
}

func mapLifecycleError(err *lifecycle.Error) (int, errorResponse) {
	switch err.Kind {
	case lifecycle.ErrValidation:
		return http.StatusBadRequest, errorResponse{
			Error:  err.Message,
			Type:   "validation_error",
			Errors: []ValidationError{{Field: err.Field, Code: "invalid", Message: err.Message}},
		}
	case lifecycle.ErrConflict:
		return http.StatusConflict, errorResponse{Error: err.Message, Type: "conflict"}
	case lifecycle.ErrNotFound:
		return http.StatusNotFound, errorResponse{Error: err.Message, Type: "not_found"}
	case lifecycle.ErrImmutable:
		return http.StatusConflict, errorResponse{Error: err.Message, Type: "immutable_state"}
	case lifecycle.ErrStore:
		return http.StatusServiceUnavailable, errorResponse{Error: "store unavailable", Type: "store_unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Type: "internal_error"}
	}
}

func authField(err error) string {
	switch {
	case errors.Is(err, password.ErrTooShort):
		return "password"
	case errors.Is(err, authdomain.ErrInvalidHamlet):
		return "hamlet"
	case errors.Is(err, authdomain.ErrInvalidRole):
		return "role"
	default:
		return "username"
	}
}

// classifyErrorForLog returns the error type and code recorded by the
// request logger.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if status >= http.StatusInternalServerError {
		code = strings.ToLower(http.StatusText(status))
	}
	return payload.Type, code
}
