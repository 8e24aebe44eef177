package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AntonVanke/xuexinwang/internal/app/models/dto"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
)

// HandleAPIError translates a service error into an HTTP status and error envelope.
// Storage failures are checked first since they may wrap other sentinels.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		detail.WithSeverity(dto.ErrorSeverityCritical)
	} else if status != http.StatusTooManyRequests {
		detail.WithSeverity(dto.ErrorSeverityWarning)
	}
	c.JSON(status, dto.NewFailureResponse(detail, nil))
}

// AbortWithAPIError writes the error response and stops the handler chain
func AbortWithAPIError(c *gin.Context, err error) {
	HandleAPIError(c, err)
	c.Abort()
}

func classifyError(err error) (int, *dto.ErrorDetail) {
	switch {
	case errors.Is(err, apperrors.ErrStorageFailure):
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Storage failure")

	case errors.Is(err, apperrors.ErrInvalidIdentity):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidIdentity, "身份证号码校验失败").
			WithField("identityNumber")
	case errors.Is(err, apperrors.ErrInvalidInput):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, messageOf(err, "Invalid input"))
		var custom *apperrors.CustomError
		if errors.As(err, &custom) {
			if field, ok := custom.Details["field"].(string); ok {
				detail.WithField(field)
			}
		}
		return http.StatusBadRequest, detail
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, dto.NewErrorDetail(dto.ErrorCodeFileTooLarge, messageOf(err, "File too large"))

	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, messageOf(err, "Resource not found"))
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, messageOf(err, "Conflict"))

	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Session expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid session")
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
	case errors.Is(err, apperrors.ErrSetupClosed):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeSetupClosed, "Admin account already exists")
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many requests")

	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}

// messageOf returns the CustomError message when there is one
func messageOf(err error, fallback string) string {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message
	}
	return fallback
}
