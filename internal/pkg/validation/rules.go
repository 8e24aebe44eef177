package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/AntonVanke/xuexinwang/internal/pkg/idcard"
)

// TagIDCard validates an 18-character resident identity number with its check code
const TagIDCard = "idcard"

// RegisterRules adds the custom tags to a validator and reports fields by their form name
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)

	if err := v.RegisterValidation(TagIDCard, func(fl validator.FieldLevel) bool {
		return idcard.Validate(idcard.Normalize(fl.Field().String()))
	}); err != nil {
		return fmt.Errorf("failed to register %s validation: %w", TagIDCard, err)
	}
	return nil
}

// RegisterGinRules installs the custom tags on gin's default binding validator
func RegisterGinRules() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return RegisterRules(v)
}

// fieldName prefers the form tag, then the json tag, then the Go name
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
