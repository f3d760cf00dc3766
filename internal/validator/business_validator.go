package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/evalhub/survey-builder-service/internal/models"
)

// Validator wraps struct-tag validation with the survey domain's custom
// rules. Services hold one instance and call ValidateStruct on request
// DTOs before touching the database.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerDomainRules()
	return v
}

// ValidateStruct runs the tag rules and returns ValidationErrors (never a
// raw validator.ValidationErrors) so handlers have one error shape.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var out ValidationErrors
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			out = append(out, ValidationError{
				Field:   fe.Field(),
				Message: v.errorMessage(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return out
	}
	return err
}

// registerDomainRules registers the custom tags the DTOs use.
func (v *Validator) registerDomainRules() {
	// question type validation
	_ = v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).Valid()
	})

	// version status validation
	_ = v.validate.RegisterValidation("version_status", func(fl validator.FieldLevel) bool {
		switch models.VersionStatus(fl.Field().String()) {
		case models.VersionDraft, models.VersionPublished:
			return true
		}
		return false
	})

	// test status validation
	_ = v.validate.RegisterValidation("test_status", func(fl validator.FieldLevel) bool {
		switch models.TestStatus(fl.Field().String()) {
		case models.TestActive, models.TestClosed:
			return true
		}
		return false
	})

	// access code validation: trimmed, no internal whitespace
	_ = v.validate.RegisterValidation("access_code", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		trimmed := strings.TrimSpace(code)
		return trimmed == code && trimmed != "" && !strings.ContainsAny(code, " \t\n")
	})
}

// errorMessage returns user-friendly error messages
func (v *Validator) errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		return fmt.Sprintf("must match the format %s", err.Param())
	case "question_type":
		return "must be a valid question type"
	case "version_status":
		return "must be draft or published"
	case "test_status":
		return "must be active or closed"
	case "access_code":
		return "must not contain whitespace"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
