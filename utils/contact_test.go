package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mymerch/models"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("jane@example.com"))
	assert.True(t, ValidEmail("  jane.doe+merch@shop.co  "))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail(""))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+1 (555) 010-2030"))
	assert.True(t, ValidPhone("555010"))
	assert.False(t, ValidPhone("12"))
	assert.False(t, ValidPhone("555-CALL-NOW"))
	assert.False(t, ValidPhone(""))
}

func TestValidateContact(t *testing.T) {
	err := ValidateContact("not-an-email", "12")
	assert.True(t, models.IsValidation(err))
	assert.EqualError(t, err, "Valid email address is required")

	err = ValidateContact("jane@example.com", "12")
	assert.EqualError(t, err, "Valid phone number is required")

	assert.NoError(t, ValidateContact("jane@example.com", "+1 555 010 2030"))
}
