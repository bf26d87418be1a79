package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"mymerch/models"
)

var (
	contactValidator = validator.New()
	phonePattern     = regexp.MustCompile(`^[0-9\-+\s()]{6,}$`)
)

// ValidEmail reports whether email is a syntactically valid address
func ValidEmail(email string) bool {
	return contactValidator.Var(strings.TrimSpace(email), "required,email") == nil
}

// ValidPhone reports whether phone is at least six digits, spaces, dashes,
// plus signs or parentheses
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// ValidateContact checks the customer contact fields, email first
func ValidateContact(email, phone string) error {
	if !ValidEmail(email) {
		return models.NewValidationError("Valid email address is required")
	}
	if !ValidPhone(phone) {
		return models.NewValidationError("Valid phone number is required")
	}
	return nil
}
