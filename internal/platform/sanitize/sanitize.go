// Package sanitize turns decoded payload values into store-ready values.
// Every check reports the first violation as an apperr validation error
// tagged with the offending field.
package sanitize

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/vetcare/practice/internal/platform/apperr"
)

// disallowed are characters with meaning to document-store query syntax.
const disallowed = "${}\x00"

// Clean trims s and rejects query-injection characters.
func Clean(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, disallowed) {
		return "", apperr.Validation(field, "contains a disallowed character")
	}
	return s, nil
}

// Required trims s and rejects it when empty.
func Required(field, s string) (string, error) {
	s, err := Clean(field, s)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", apperr.Validation(field, "is required")
	}
	return s, nil
}

// Optional is Clean for an optional field. An empty result is reported as
// unset.
func Optional(field string, s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := Clean(field, *s)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

// Enum validates an optional enumerated value sent as a string or *string.
// Unset passes through. Any other JSON type is rejected, never ignored.
func Enum(field string, v interface{}, allowed ...string) (*string, error) {
	s, present, err := enumString(field, v)
	if err != nil || !present {
		return nil, err
	}
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if s == a {
			return &s, nil
		}
	}
	return nil, apperr.Validation(field, "invalid %s %q", field, s)
}

// RequiredEnum validates a required enumerated value.
func RequiredEnum(field string, v interface{}, allowed ...string) (string, error) {
	s, present, err := enumString(field, v)
	if err != nil {
		return "", err
	}
	if !present || strings.TrimSpace(s) == "" {
		return "", apperr.Validation(field, "is required")
	}
	got, err := Enum(field, s, allowed...)
	if err != nil {
		return "", err
	}
	return *got, nil
}

func enumString(field string, v interface{}) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case *string:
		if t == nil {
			return "", false, nil
		}
		return *t, true, nil
	case string:
		return t, true, nil
	default:
		return "", false, apperr.Validation(field, "invalid %s: must be a string", field)
	}
}

// Number accepts an absent value or a finite JSON number. Strings are not
// coerced.
func Number(field string, v interface{}) (*float64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, apperr.Validation(field, "must be a finite number")
		}
		return &n, nil
	case int:
		f := float64(n)
		return &f, nil
	default:
		return nil, apperr.Validation(field, "must be a number")
	}
}

// NonNegativeInt accepts a whole, non-negative number.
func NonNegativeInt(field string, v *int) (int, error) {
	if v == nil {
		return 0, apperr.Validation(field, "is required")
	}
	if *v < 0 {
		return 0, apperr.Validation(field, "must not be negative")
	}
	return *v, nil
}

// Bool accepts an absent value or a JSON boolean.
func Bool(field string, v interface{}) (*bool, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &b, nil
	default:
		return nil, apperr.Validation(field, "must be a boolean")
	}
}

// Date accepts a calendar date (2006-01-02) or an RFC 3339 timestamp and
// returns the calendar date.
func Date(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation(field, "is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", apperr.Validation(field, "invalid date %q", s)
}

// URL accepts an absent value or an absolute http(s) URL.
func URL(field string, s *string) (*string, error) {
	v, err := Optional(field, s)
	if err != nil || v == nil {
		return v, err
	}
	u, perr := url.Parse(*v)
	if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation(field, "must be an absolute http(s) URL")
	}
	return v, nil
}
