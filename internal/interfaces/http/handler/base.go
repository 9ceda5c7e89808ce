package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizpulse/backend/internal/domain/erp"
	"github.com/bizpulse/backend/internal/domain/kpi"
	"github.com/bizpulse/backend/internal/domain/shared"
	"github.com/bizpulse/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, limit, offset))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// errorCode maps domain sentinel errors to API error codes
func errorCode(err error) string {
	switch {
	case errors.Is(err, erp.ErrConnectionNotFound), errors.Is(err, shared.ErrNotFound):
		return dto.ErrCodeNotFound
	case errors.Is(err, erp.ErrDuplicateConnection):
		return dto.ErrCodeDuplicateConnection
	case errors.Is(err, erp.ErrAuthenticationFailed):
		return dto.ErrCodeAuthentication
	case errors.Is(err, erp.ErrEndpointUnavailable),
		errors.Is(err, erp.ErrProviderUnavailable),
		errors.Is(err, erp.ErrInvalidResponse):
		return dto.ErrCodeEndpointUnavailable
	case errors.Is(err, erp.ErrDecryptionFailed):
		return dto.ErrCodeDecryption
	case errors.Is(err, erp.ErrUnsupportedProvider):
		return dto.ErrCodeUnsupportedProvider
	case errors.Is(err, erp.ErrInvalidCredentials):
		return dto.ErrCodeValidation
	case errors.Is(err, erp.ErrConnectionState):
		return dto.ErrCodeConnectionState
	case errors.Is(err, erp.ErrInvalidDateRange):
		return dto.ErrCodeInvalidDateRange
	case errors.Is(err, erp.ErrRefreshNotSupported):
		return dto.ErrCodeUnsupportedProvider
	case errors.Is(err, kpi.ErrUnknownCode):
		return dto.ErrCodeNotFound
	case errors.Is(err, kpi.ErrMissingPeriod),
		errors.Is(err, kpi.ErrMissingAsOfDate),
		errors.Is(err, kpi.ErrMissingInputs):
		return dto.ErrCodeMissingParameter
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return dto.ErrCodeConcurrencyConflict
	default:
		return dto.ErrCodeInternal
	}
}

// HandleError converts domain errors to HTTP responses. Unknown error types
// become opaque 500s so internals never leak to clients.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	code := errorCode(err)
	if code == dto.ErrCodeInternal {
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, err.Error(), requestID))
}
