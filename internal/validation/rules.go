// Package validation provides custom validation rules for the application.
package validation

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/easymo/deeplinks/internal/errors"
)

var (
	// e164Regex matches a phone number in E.164 form: '+', a non-zero digit, 7 to 15 digits total.
	e164Regex = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// FieldErrors flattens jellydator validation errors into a map suitable for a
// JSON response. Nested struct errors become nested maps. Returns nil when err
// is not a validation.Errors.
func FieldErrors(err error) map[string]any {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if nested := FieldErrors(fieldErr); nested != nil {
			out[field] = nested
			continue
		}
		out[field] = fieldErr.Error()
	}
	return out
}

// IsE164 reports whether s is a phone number in E.164 form.
func IsE164(s string) bool {
	return e164Regex.MatchString(s)
}

// E164 validates that a string is a phone number in E.164 form.
var E164 = validation.NewStringRuleWithError(
	IsE164,
	validation.NewError("validation_e164", "must be a phone number in E.164 format"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) == s
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
