package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

type submitForm struct {
	IdentityNumber string `form:"identity_number" binding:"required,idcard" validate:"required,idcard"`
}

func TestIDCardTag(t *testing.T) {
	v := validator.New()
	if err := RegisterRules(v); err != nil {
		t.Fatalf("RegisterRules: %v", err)
	}

	if err := v.Struct(submitForm{IdentityNumber: "11010519491231002x"}); err != nil {
		t.Errorf("valid identity rejected: %v", err)
	}

	err := v.Struct(submitForm{IdentityNumber: "110105194912310021"})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 {
		t.Fatalf("expected one validation error, got %v", err)
	}
	if verrs[0].Tag() != TagIDCard || verrs[0].Field() != "identity_number" {
		t.Errorf("unexpected error field=%s tag=%s", verrs[0].Field(), verrs[0].Tag())
	}
}
