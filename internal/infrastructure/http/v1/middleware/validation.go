package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"facturard/internal/core/apperror"
	"facturard/internal/core/taxid"
)

var setupOnce sync.Once

// SetupValidator registers custom binding tags on gin's validator:
//
//	taxid  the value is a valid RNC or Cédula (formatting characters allowed)
//
// Field names in errors follow the json tag.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("taxid", validateTaxID)
	})
}

// validateTaxID accepts empty values; combine with required where needed.
func validateTaxID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return taxid.Validate(s)
}

// BindingError converts a gin binding error into an AppError.
// A failed taxid rule yields INVALID_TAX_ID without saying which part failed.
func BindingError(err error, message string) *apperror.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewValidation(message).WithDetail("error", err.Error())
	}

	for _, fe := range verrs {
		if fe.Tag() == "taxid" {
			return apperror.NewInvalidTaxID(fe.Field())
		}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apperror.NewValidation(message).WithDetail("fields", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
