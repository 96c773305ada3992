package address

import (
	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/sanitize"
)

// Sanitize cleans every text field and enforces the coordinate pair rule.
// Field names in errors are prefixed with prefix.
func Sanitize(prefix string, a Address) (Address, error) {
	var err error
	out := a
	fields := []struct {
		name string
		val  *string
	}{
		{"addressLine", &out.AddressLine},
		{"country", &out.Country},
		{"city", &out.City},
		{"state", &out.State},
		{"postalCode", &out.PostalCode},
	}
	for _, f := range fields {
		if *f.val, err = sanitize.Clean(prefix+"."+f.name, *f.val); err != nil {
			return Address{}, err
		}
	}

	if (a.Latitude == nil) != (a.Longitude == nil) {
		out.Latitude, out.Longitude = nil, nil
		return out, nil
	}
	if a.HasCoordinates() {
		if *a.Latitude < -90 || *a.Latitude > 90 {
			return Address{}, apperr.Validation(prefix+".latitude", "must be between -90 and 90")
		}
		if *a.Longitude < -180 || *a.Longitude > 180 {
			return Address{}, apperr.Validation(prefix+".longitude", "must be between -180 and 180")
		}
	}
	return out, nil
}

// SanitizeRequired is Sanitize for an address that must carry a line and city.
func SanitizeRequired(prefix string, a Address) (Address, error) {
	out, err := Sanitize(prefix, a)
	if err != nil {
		return Address{}, err
	}
	if out.AddressLine == "" {
		return Address{}, apperr.Validation(prefix+".addressLine", "is required")
	}
	if out.City == "" {
		return Address{}, apperr.Validation(prefix+".city", "is required")
	}
	return out, nil
}
