package middleware

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/AntonVanke/xuexinwang/internal/app/models/dto"
	"github.com/AntonVanke/xuexinwang/internal/pkg/validation"
)

// TranslateBindError turns a gin binding error into an error detail.
// An identity number failing its check code gets its own code.
func TranslateBindError(err error) *dto.ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request format").
			WithDetails(err.Error())
	}

	first := verrs[0]
	if first.Tag() == validation.TagIDCard {
		return dto.NewErrorDetail(dto.ErrorCodeInvalidIdentity, "身份证号码校验失败").
			WithField(first.Field())
	}

	fields := make([]dto.ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, *dto.NewErrorDetail(dto.ErrorCodeValidationFailed, formatValidationError(fe)).WithField(fe.Field()))
	}
	return dto.NewErrorDetail(dto.ErrorCodeValidationFailed, formatValidationError(first)).
		WithField(first.Field()).
		WithDetails(fields)
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
