package wizard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ParseNumber reads a decimal number field. NaN, infinities and hexadecimal
// forms are rejected.
func ParseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if strings.ContainsAny(raw, "xX") {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidatePhase checks the fields of phase n against values and returns every
// failure in declaration order. It has no side effects.
func (d *Definition) ValidatePhase(n int, values map[string]string) []FieldError {
	phase, ok := d.Phase(n)
	if !ok {
		return nil
	}
	var errs []FieldError
	for _, f := range phase.Fields {
		if msg := validateField(d, f, values); msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		}
	}
	return errs
}

func validateField(d *Definition, f Field, values map[string]string) string {
	value := strings.TrimSpace(values[f.Name])

	if f.Kind == KindCheckbox {
		if f.Required && !IsChecked(value) {
			return f.message(RuleRequired, fmt.Sprintf("%s must be checked.", f.Label))
		}
		return ""
	}

	if value == "" {
		if f.Required {
			return f.message(RuleRequired, fmt.Sprintf("%s is required.", f.Label))
		}
		return ""
	}

	switch f.Kind {
	case KindNumber:
		n, ok := ParseNumber(value)
		if !ok {
			return f.message(RuleNumber, fmt.Sprintf("%s must be a number.", f.Label))
		}
		if f.Min != nil && n < *f.Min {
			return f.message(RuleMin, fmt.Sprintf("%s must be %s or more.", f.Label, strconv.FormatFloat(*f.Min, 'f', -1, 64)))
		}
	case KindEmail:
		if !emailPattern.MatchString(value) {
			return f.message(RuleFormat, fmt.Sprintf("%s is invalid.", f.Label))
		}
	case KindDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return f.message(RuleFormat, fmt.Sprintf("%s must be a valid date.", f.Label))
		}
	case KindSelect:
		if !hasChoice(f, value) {
			return f.message(RuleOption, fmt.Sprintf("%s has an unknown option.", f.Label))
		}
	}

	if f.MinLength > 0 && len([]rune(value)) < f.MinLength {
		return f.message(RuleMinLength, fmt.Sprintf("%s must be at least %d characters.", f.Label, f.MinLength))
	}
	if f.Matches != "" && value != strings.TrimSpace(values[f.Matches]) {
		other, _ := d.Field(f.Matches)
		return f.message(RuleMatches, fmt.Sprintf("%s does not match %s.", f.Label, other.Label))
	}
	return ""
}

func hasChoice(f Field, value string) bool {
	for _, opt := range f.Choices() {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// IsChecked reports whether a checkbox value is on.
func IsChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
