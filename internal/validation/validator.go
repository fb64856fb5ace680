// Package validation collects field errors for request payloads.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
	MaxNameLength     = 120
)

// Validator defines validation methods
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first error reported for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks that a string is not blank.
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// OptionalEmail validates email format only when a value is present.
func (v *Validator) OptionalEmail(field, email string) {
	if email != "" {
		v.Email(field, email)
	}
}

func (v *Validator) MinLength(field, value string, n int) {
	v.Check(len(value) >= n, field, fmt.Sprintf("must be at least %d characters long", n))
}

func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Password checks length bounds.
func (v *Validator) Password(field, password string) {
	v.MinLength(field, password, MinPasswordLength)
	v.MaxLength(field, password, MaxPasswordLength)
}

// HTTPURL requires an absolute http or https URL.
func (v *Validator) HTTPURL(field, raw string) {
	u, err := url.Parse(raw)
	ok := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	v.Check(ok, field, "must be a valid http(s) URL")
}

// Error renders the collected errors in a stable order.
func (v *Validator) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.Errors[f])
	}
	return strings.Join(parts, "; ")
}
