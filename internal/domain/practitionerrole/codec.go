package practitionerrole

import (
	"github.com/vetcare/practice/internal/platform/fhir"
)

// Attributes is the decoded content of a PractitionerRole resource.
type Attributes struct {
	ID           *string
	Practitioner *string
	Organization *string
	RoleCode     *string
	RoleDisplay  *string
	RoleSystem   *string
	Active       *bool
}

// FromRequest decodes a PractitionerRole resource. References are kept as
// the opaque strings the caller sent.
func FromRequest(resource fhir.Object) (Attributes, error) {
	if err := fhir.RequireResourceType(resource, ResourceType); err != nil {
		return Attributes{}, err
	}

	a := Attributes{
		ID:           fhir.GetStringPtr(resource, "id"),
		Practitioner: fhir.ReferenceString(resource, "practitioner"),
		Organization: fhir.ReferenceString(resource, "organization"),
	}

	coding, text := fhir.FirstCoding(resource, "code")
	switch {
	case coding != nil:
		if coding.Code != "" {
			a.RoleCode = &coding.Code
		}
		if coding.Display != "" {
			a.RoleDisplay = &coding.Display
		}
		if coding.System != "" {
			a.RoleSystem = &coding.System
		}
	case text != "":
		a.RoleCode = &text
		a.RoleDisplay = &text
	}

	if v, ok := fhir.GetBool(resource, "active"); ok {
		a.Active = &v
	}
	return a, nil
}

// ToResponse encodes r as a PractitionerRole resource.
func ToResponse(r *PractitionerRole) fhir.Object {
	coding := fhir.Coding{System: fhir.SystemPractitionerRole, Code: r.RoleCode}
	if r.RoleSystem != nil {
		coding.System = *r.RoleSystem
	}
	concept := fhir.CodeableConcept{Coding: []fhir.Coding{coding}}
	if r.RoleDisplay != nil {
		concept.Coding[0].Display = *r.RoleDisplay
		concept.Text = *r.RoleDisplay
	}

	result := fhir.Object{
		"resourceType": ResourceType,
		"id":           r.ResponseID(),
		"active":       r.Active,
		"practitioner": fhir.Reference{Reference: r.Practitioner},
		"organization": fhir.Reference{Reference: r.Organization},
		"code":         []fhir.CodeableConcept{concept},
	}
	if !r.UpdatedAt.IsZero() {
		result["meta"] = fhir.Meta{LastUpdated: r.UpdatedAt}
	}
	return result
}
