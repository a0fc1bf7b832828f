package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("otp_code", validateOTPCode); err != nil {
		panic(fmt.Sprintf("failed to register otp_code validator: %v", err))
	}
	if err := Validate.RegisterValidation("otp_type", validateOTPType); err != nil {
		panic(fmt.Sprintf("failed to register otp_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("password_strength", validatePasswordStrength); err != nil {
		panic(fmt.Sprintf("failed to register password_strength validator: %v", err))
	}
}

// validateOTPCode validates that a string is exactly six ASCII digits
func validateOTPCode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != 6 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateOTPType validates that a string is a valid OTPType enum value
func validateOTPType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.OTPType(value) {
	case models.OTPTypeEmailVerification, models.OTPTypePasswordReset:
		return true
	default:
		return false
	}
}

// validatePasswordStrength requires at least one letter and one digit.
// Length bounds are expressed separately via min/max tags.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var hasLetter, hasDigit bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateOTPType validates an OTPType string value
func ValidateOTPType(value string) error {
	switch models.OTPType(value) {
	case models.OTPTypeEmailVerification, models.OTPTypePasswordReset:
		return nil
	default:
		return fmt.Errorf("invalid otp type: %s (must be 'EMAIL_VERIFICATION' or 'PASSWORD_RESET')", value)
	}
}
