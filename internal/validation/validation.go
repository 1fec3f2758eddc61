package validation

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperengineering/steward/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

func fieldError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateText applies the checks every free-text field shares: valid UTF-8,
// no null bytes and at most max runes.
func ValidateText(c *Collector, field, value string, max int) {
	if !utf8.ValidString(value) {
		c.Add(fieldError(field, "must be valid UTF-8"))
		return
	}
	if strings.Contains(value, "\x00") {
		c.Add(fieldError(field, "must not contain null bytes"))
	}
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return fieldError(field, "exceeds maximum length of %d characters", max)
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID.
// ULIDs are 26 characters of Crockford Base32 (no I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return fieldError(field, "must be a valid ULID (26 characters)")
	}
	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range strings.ToUpper(value) {
		if !strings.ContainsRune(crockfordBase32, r) {
			return fieldError(field, "must be a valid ULID (invalid character)")
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return fieldError(field, "is required")
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fieldError(field, "must be one of: %s", strings.Join(allowed, ", "))
}

// ValidatePositive returns an error unless value is finite and strictly
// greater than zero.
func ValidatePositive(field string, value float64) *ValidationError {
	if !(value > 0) || math.IsInf(value, 0) {
		return fieldError(field, "must be greater than 0")
	}
	return nil
}

// ValidateDate returns an error if value is not a YYYY-MM-DD calendar date.
func ValidateDate(field, value string) *ValidationError {
	if _, err := time.Parse(types.DateLayout, value); err != nil {
		return fieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// ValidateDeadline returns an error if value is neither RFC 3339 nor YYYY-MM-DD.
func ValidateDeadline(field, value string) *ValidationError {
	if _, err := ParseDeadline(value); err != nil {
		return fieldError(field, "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	return nil
}

// ParseDeadline parses an RFC 3339 timestamp or a YYYY-MM-DD date (midnight UTC).
func ParseDeadline(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(types.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q", value)
	}
	return t, nil
}
