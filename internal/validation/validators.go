package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("hhmm", validateClock); err != nil {
		panic(fmt.Sprintf("failed to register hhmm validator: %v", err))
	}
	if err := Validate.RegisterValidation("weekday", validateWeekday); err != nil {
		panic(fmt.Sprintf("failed to register weekday validator: %v", err))
	}
	if err := Validate.RegisterValidation("record_status", validateRecordStatus); err != nil {
		panic(fmt.Sprintf("failed to register record_status validator: %v", err))
	}
}

// validateClock accepts wall-clock "HH:MM" strings
func validateClock(fl validator.FieldLevel) bool {
	_, _, err := models.ParseClock(fl.Field().String())
	return err == nil
}

// validateWeekday accepts integers 0 (Sunday) through 6 (Saturday)
func validateWeekday(fl validator.FieldLevel) bool {
	day := fl.Field().Int()
	return day >= 0 && day <= 6
}

// validateRecordStatus validates that a string is a recordable status
func validateRecordStatus(fl validator.FieldLevel) bool {
	return models.RecordStatus(fl.Field().String()).Valid()
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

// ValidateRecordStatus validates a RecordStatus string value
func ValidateRecordStatus(value string) error {
	if models.RecordStatus(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid status: %s (must be 'completed', 'failed', or 'delayed')", value)
}

// FirstError renders the first field error of a validator failure
func FirstError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Sprintf("Validation failed: field %s failed on the '%s' rule", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "Validation failed"
}
