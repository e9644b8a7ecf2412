package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
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
	// Credit pack size validation
	validate.RegisterValidation("credit_pack", func(fl validator.FieldLevel) bool {
		pack := fl.Field().Int()
		validPacks := []int64{0, 10, 25, 50, 100}
		for _, p := range validPacks {
			if pack == p {
				return true
			}
		}
		return false
	})

	// Form creation source validation
	validate.RegisterValidation("form_source", func(fl validator.FieldLevel) bool {
		source := fl.Field().String()
		validSources := []string{"import", "ai", "manual", ""}
		for _, s := range validSources {
			if source == s {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
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
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "credit_pack":
			errors[field] = "Invalid pack size. Must be: 10, 25, 50, or 100"
		case "form_source":
			errors[field] = "Invalid source. Must be: import, ai, or manual"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
