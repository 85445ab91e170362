// Package validation wraps go-playground/validator with the custom tags
// the request DTOs use.
package validation

import (
	"reflect"
	"strings"

	"github.com/Sharon404/wallet-app/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Supported wallet currency (empty means default)
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if code == "" {
			return true
		}
		return models.IsSupportedCurrency(code)
	})

	// Six-digit numeric PIN
	validate.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		pin := fl.Field().String()
		if len(pin) != 6 {
			return false
		}
		for _, r := range pin {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})

	// Settlement endpoint
	validate.RegisterValidation("endpoint", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == "wallet" || v == "external"
	})
}

// Validate validates a struct and returns a map of field errors.
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "currency":
			errors[field] = "Unsupported currency code"
		case "pin":
			errors[field] = "PIN must be exactly 6 digits"
		case "endpoint":
			errors[field] = "Must be either wallet or external"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable against a tag expression.
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// HasSpecialChar reports whether s contains at least one punctuation
// character; used by the password policy.
func HasSpecialChar(s string) bool {
	specialChars := "!@#$%^&*()_+-=[]{}|;:,.<>?`~"
	for _, char := range s {
		if strings.ContainsRune(specialChars, char) {
			return true
		}
	}
	return false
}
