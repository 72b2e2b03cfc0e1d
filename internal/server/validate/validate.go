// Package validate checks request payloads against their `validate` struct
// tags and reports failures as field errors keyed by JSON name.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("hasupper", containsRune(unicode.IsUpper))
		_ = validate.RegisterValidation("hasdigit", containsRune(unicode.IsDigit))
		_ = validate.RegisterValidation("otpcode", isOTPCode)
	})
	return validate
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

func isOTPCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// Struct validates s. It returns nil or a common.KindValidation error whose
// fields list every failed constraint, in declaration order.
func Struct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Validation("Validation failed")
	}

	fields := make([]common.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, common.FieldError{Path: e.Field(), Message: message(e)})
	}
	return common.Validation("Validation failed", fields...)
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		return "Must be at least " + e.Param() + " characters"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "hasupper":
		return "Must contain uppercase"
	case "hasdigit":
		return "Must contain number"
	case "otpcode":
		return "Invalid OTP"
	case "gt":
		return "Must be greater than " + e.Param()
	default:
		return "Invalid value"
	}
}
