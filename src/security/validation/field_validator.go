package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	MaxFilterValueLength = 255
	MaxFilterValues      = 500
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateFilterValue checks a single item/currency/maturity filter entry.
func ValidateFilterValue(s, fieldName string) error {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return err
	}
	return ValidateStringMaxLength(s, MaxFilterValueLength, fieldName)
}

// ValidateFilterCount bounds how many values one filter parameter may carry.
func ValidateFilterCount(n int, fieldName string) error {
	if n > MaxFilterValues {
		return fmt.Errorf("%w: %s carries %d values, maximum is %d", ErrValidationFailed, fieldName, n, MaxFilterValues)
	}
	return nil
}
