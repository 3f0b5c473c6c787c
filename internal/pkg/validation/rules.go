package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Zero-padded 24h time of day
	ClockPattern = `^([01]\d|2[0-3]):[0-5]\d$`

	// Official receipt numbers: letters, digits, dashes and slashes
	ReferencePattern = `^[A-Za-z0-9][A-Za-z0-9/\-]{0,63}$`

	NameMinLength = 2
	NameMaxLength = 200
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Clock     *regexp.Regexp
	Reference *regexp.Regexp
}{
	Clock:     regexp.MustCompile(ClockPattern),
	Reference: regexp.MustCompile(ReferencePattern),
}

// Custom tags understood by the request DTOs
const (
	TagClock     = "clock"
	TagDate      = "caldate"
	TagReference = "refnumber"
	TagName      = "personname"
)

// Register adds the custom tags to v. It is called once for gin's binding
// engine and once for the standalone validator.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagClock:     func(fl validator.FieldLevel) bool { return IsClock(fl.Field().String()) },
		TagDate:      func(fl validator.FieldLevel) bool { return IsDate(fl.Field().String()) },
		TagReference: func(fl validator.FieldLevel) bool { return IsReference(fl.Field().String()) },
		TagName:      func(fl validator.FieldLevel) bool { return IsName(fl.Field().String()) },
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// IsClock reports whether s is an "HH:MM" time of day.
func IsClock(s string) bool {
	return CompiledPatterns.Clock.MatchString(s)
}

// IsDate reports whether s is a YYYY-MM-DD calendar date.
func IsDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsReference reports whether s looks like a receipt number.
func IsReference(s string) bool {
	return CompiledPatterns.Reference.MatchString(strings.TrimSpace(s))
}

// IsName checks the length of a person's name after trimming.
func IsName(s string) bool {
	n := len([]rune(strings.TrimSpace(s)))
	return n >= NameMinLength && n <= NameMaxLength
}
