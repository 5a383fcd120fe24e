package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fnolguard/internal/domain"
	"fnolguard/internal/middleware"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg, details string) {
	c.JSON(status, ErrorResponse{Error: msg, Code: code, Details: details})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Details never carry upstream bodies or credentials.
func MapDomainError(err error) (status int, code, msg, details string) {
	var cfgErr *domain.ModelConfigError
	var invErr *domain.ModelInvocationError
	switch {
	case errors.Is(err, domain.ErrEmptyNarrative):
		return http.StatusBadRequest, "EMPTY_PROMPT", "prompt is missing or empty", ""
	case errors.Is(err, domain.ErrMissingModel):
		return http.StatusBadRequest, "MISSING_MODEL", "model selection is missing", ""
	case errors.Is(err, domain.ErrTooManyFiles):
		return http.StatusBadRequest, "TOO_MANY_FILES", "too many files submitted", err.Error()
	case errors.Is(err, domain.ErrInvalidForm):
		return http.StatusBadRequest, "INVALID_FORM", "request body must be a multipart form", ""
	case errors.Is(err, domain.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request exceeds maximum allowed size", ""
	case errors.As(err, &cfgErr) && cfgErr.Unknown:
		return http.StatusBadRequest, "UNKNOWN_MODEL", "invalid model key",
			"model " + strconv.Quote(cfgErr.Model) + " is not available; see GET /api/v1/models"
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, "MODEL_NOT_CONFIGURED", "selected model is not configured on the server", cfgErr.Error()
	case errors.As(err, &invErr):
		return http.StatusBadGateway, "MODEL_INVOCATION_FAILED", "AI model call failed", invErr.Detail()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", ""
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, log *zap.Logger, err error) {
	status, code, msg, details := MapDomainError(err)
	if status >= 500 {
		log.Error("handler.HandleError: request failed",
			zap.String("request_id", middleware.GetRequestID(c)), zap.String("code", code), zap.Error(err))
	}
	var invErr *domain.ModelInvocationError
	if errors.As(err, &invErr) && invErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(invErr.RetryAfter.Seconds())))
	}
	RespondError(c, status, code, msg, details)
}
