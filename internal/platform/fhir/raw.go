package fhir

import (
	"strings"

	"github.com/vetcare/practice/internal/platform/apperr"
)

// Object is an untrusted, already-parsed JSON resource. Accessors below never
// fail: a value of the wrong JSON type is reported as absent.
type Object = map[string]interface{}

// RequireResourceType rejects a payload whose resourceType is not want. It must
// run before any other field is read.
func RequireResourceType(resource Object, want string) error {
	if resource == nil {
		return apperr.Invalid("request body must be a %s resource", want)
	}
	got, ok := resource["resourceType"].(string)
	if !ok || got == "" {
		return apperr.Invalid("resourceType is required and must be %q", want)
	}
	if got != want {
		return apperr.Invalid("resourceType must be %q, got %q", want, got)
	}
	return nil
}

// GetString returns o[key] when it is a string.
func GetString(o Object, key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// GetStringPtr returns o[key] as a pointer, or nil when absent or not a string.
func GetStringPtr(o Object, key string) *string {
	s, ok := o[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// GetBool returns o[key] when it is a boolean.
func GetBool(o Object, key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

// GetNumber returns o[key] when it is a JSON number.
func GetNumber(o Object, key string) (float64, bool) {
	switch v := o[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// GetObject returns o[key] when it is a JSON object.
func GetObject(o Object, key string) Object {
	m, _ := o[key].(map[string]interface{})
	return m
}

// GetObjects returns the object elements of the array at o[key], skipping
// anything that is not an object.
func GetObjects(o Object, key string) []Object {
	arr, ok := o[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Object, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// GetFirstObject returns the first object element of the array at o[key].
func GetFirstObject(o Object, key string) Object {
	objs := GetObjects(o, key)
	if len(objs) == 0 {
		return nil
	}
	return objs[0]
}

// GetStrings returns the string elements of the array at o[key].
func GetStrings(o Object, key string) []string {
	arr, ok := o[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FirstTelecom returns the value of the first telecom entry with the given
// system that carries a string value.
func FirstTelecom(o Object, system string) *string {
	for _, cp := range GetObjects(o, "telecom") {
		if sys, _ := GetString(cp, "system"); sys != system {
			continue
		}
		if v, ok := GetString(cp, "value"); ok && strings.TrimSpace(v) != "" {
			return &v
		}
	}
	return nil
}

// FirstCoding returns the first coding of the first CodeableConcept at o[key],
// plus the concept's free text.
func FirstCoding(o Object, key string) (*Coding, string) {
	var concept Object
	if arr := GetObjects(o, key); len(arr) > 0 {
		concept = arr[0]
	} else {
		concept = GetObject(o, key)
	}
	if concept == nil {
		return nil, ""
	}
	text, _ := GetString(concept, "text")
	c := GetFirstObject(concept, "coding")
	if c == nil {
		return nil, text
	}
	coding := &Coding{}
	coding.System, _ = GetString(c, "system")
	coding.Code, _ = GetString(c, "code")
	coding.Display, _ = GetString(c, "display")
	if coding.System == "" && coding.Code == "" && coding.Display == "" {
		return nil, text
	}
	return coding, text
}

// ReferenceString returns the reference string held at o[key].reference.
func ReferenceString(o Object, key string) *string {
	ref := GetObject(o, key)
	if ref == nil {
		return nil
	}
	return GetStringPtr(ref, "reference")
}
