package fhir

import (
	"encoding/json"
	"math"
)

// StructureDefinitionBase prefixes every extension this server defines.
const StructureDefinitionBase = "https://fhir.vetcare.dev/StructureDefinition/"

// Extension URLs. Every codec reads and writes custom fields through these
// constants only.
const (
	ExtGeolocation    = "http://hl7.org/fhir/StructureDefinition/geolocation"
	ExtIsVerified     = StructureDefinitionBase + "organization-is-verified"
	ExtDepartments    = StructureDefinitionBase + "organization-departments"
	ExtRegistrationNo = StructureDefinitionBase + "organization-registration-number"
	ExtImage          = StructureDefinitionBase + "organization-image"
	ExtParentAge      = StructureDefinitionBase + "related-person-age"
	ExtStorageKey     = StructureDefinitionBase + "storage-key"
)

// Child URLs used inside the geolocation extension.
const (
	GeoLatitude  = "latitude"
	GeoLongitude = "longitude"
)

// Identifier systems.
const (
	SystemRegistrationNo   = "https://fhir.vetcare.dev/sid/organization-registration"
	SystemMicrochip        = "https://fhir.vetcare.dev/sid/microchip"
	SystemPractitionerRole = "http://terminology.hl7.org/CodeSystem/practitioner-role"
	SystemOrganizationType = "http://terminology.hl7.org/CodeSystem/organization-type"
)

// Extensions returns the extension entries of o.
func Extensions(o Object) []Object {
	return GetObjects(o, "extension")
}

// FindExtension returns the first entry whose url matches, or nil.
func FindExtension(exts []Object, url string) Object {
	for _, ext := range exts {
		if u, _ := GetString(ext, "url"); u == url {
			return ext
		}
	}
	return nil
}

// ExtensionString reads valueString from the first entry for url.
func ExtensionString(exts []Object, url string) (string, bool) {
	ext := FindExtension(exts, url)
	if ext == nil {
		return "", false
	}
	return GetString(ext, "valueString")
}

// ExtensionURL reads valueUrl (falling back to valueUri, then valueString)
// from the first entry for url.
func ExtensionURL(exts []Object, url string) (string, bool) {
	ext := FindExtension(exts, url)
	if ext == nil {
		return "", false
	}
	for _, key := range []string{"valueUrl", "valueUri", "valueString"} {
		if v, ok := GetString(ext, key); ok {
			return v, true
		}
	}
	return "", false
}

// ExtensionBool reads valueBoolean from the first entry for url.
func ExtensionBool(exts []Object, url string) (bool, bool) {
	ext := FindExtension(exts, url)
	if ext == nil {
		return false, false
	}
	return GetBool(ext, "valueBoolean")
}

// ExtensionInteger reads valueInteger from the first entry for url. A
// non-integral valueInteger is ignored; when no integer is present a
// valueDecimal is truncated toward zero. Values outside the int range are
// treated as malformed.
func ExtensionInteger(exts []Object, url string) (int, bool) {
	ext := FindExtension(exts, url)
	if ext == nil {
		return 0, false
	}
	if n, ok := GetNumber(ext, "valueInteger"); ok && n == math.Trunc(n) && fitsInt(n) {
		return int(n), true
	}
	if d, ok := GetNumber(ext, "valueDecimal"); ok && !math.IsNaN(d) && fitsInt(math.Trunc(d)) {
		return int(math.Trunc(d)), true
	}
	return 0, false
}

// fitsInt reports whether f converts to int without overflow. NaN and the
// infinities never fit.
func fitsInt(f float64) bool {
	return f >= math.MinInt && f < math.MaxInt
}

// ExtensionDecimal reads valueDecimal from the first entry for url.
func ExtensionDecimal(exts []Object, url string) (float64, bool) {
	ext := FindExtension(exts, url)
	if ext == nil {
		return 0, false
	}
	d, ok := GetNumber(ext, "valueDecimal")
	if !ok || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

// ExtensionJSON decodes the JSON document held in valueString of the first
// entry for url into dst. It reports false, leaving dst untouched, when the
// entry is missing or does not parse.
func ExtensionJSON(exts []Object, url string, dst interface{}) bool {
	raw, ok := ExtensionString(exts, url)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false
	}
	return true
}

// AppendString appends a valueString entry when v is set.
func AppendString(exts []Extension, url string, v *string) []Extension {
	if v == nil {
		return exts
	}
	s := *v
	return append(exts, Extension{URL: url, ValueString: &s})
}

// AppendURL appends a valueUrl entry when v is set.
func AppendURL(exts []Extension, url string, v *string) []Extension {
	if v == nil {
		return exts
	}
	s := *v
	return append(exts, Extension{URL: url, ValueURL: &s})
}

// AppendBool appends a valueBoolean entry when v is set.
func AppendBool(exts []Extension, url string, v *bool) []Extension {
	if v == nil {
		return exts
	}
	b := *v
	return append(exts, Extension{URL: url, ValueBoolean: &b})
}

// AppendInteger appends a valueInteger entry when v is set.
func AppendInteger(exts []Extension, url string, v *int) []Extension {
	if v == nil {
		return exts
	}
	n := *v
	return append(exts, Extension{URL: url, ValueInteger: &n})
}

// AppendJSON appends v encoded as a JSON valueString. Nil values and values
// that fail to encode are omitted.
func AppendJSON(exts []Extension, url string, v interface{}) []Extension {
	if v == nil {
		return exts
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return exts
	}
	s := string(raw)
	return append(exts, Extension{URL: url, ValueString: &s})
}
