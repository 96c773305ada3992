package organization

import (
	"strings"

	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/fhir"
)

// Attributes is the decoded, not yet sanitized, content of an Organization
// resource. Nil means the resource did not carry the field.
type Attributes struct {
	ID             *string
	Name           *string
	RegistrationNo *string
	ImageURL       *string
	Phone          *string
	Website        *string
	Address        *address.Address
	Departments    []Department
	IsVerified     *bool
	Type           *fhir.Coding
}

// FromRequest decodes an Organization resource. Only a missing or wrong
// resourceType is an error; unreadable extensions are treated as absent.
func FromRequest(resource fhir.Object) (Attributes, error) {
	if err := fhir.RequireResourceType(resource, ResourceType); err != nil {
		return Attributes{}, err
	}

	exts := fhir.Extensions(resource)
	a := Attributes{
		ID:      fhir.GetStringPtr(resource, "id"),
		Name:    fhir.GetStringPtr(resource, "name"),
		Phone:   fhir.FirstTelecom(resource, "phone"),
		Website: fhir.FirstTelecom(resource, "url"),
	}

	if v, ok := fhir.ExtensionString(exts, fhir.ExtRegistrationNo); ok {
		a.RegistrationNo = &v
	} else {
		a.RegistrationNo = firstIdentifierValue(resource)
	}
	if v, ok := fhir.ExtensionURL(exts, fhir.ExtImage); ok {
		a.ImageURL = &v
	}
	if addr, ok := address.DecodeField(resource, "address"); ok {
		a.Address = &addr
	}
	var deps []Department
	if fhir.ExtensionJSON(exts, fhir.ExtDepartments, &deps) {
		a.Departments = deps
	}
	if v, ok := fhir.ExtensionBool(exts, fhir.ExtIsVerified); ok {
		a.IsVerified = &v
	}
	if coding, _ := fhir.FirstCoding(resource, "type"); coding != nil {
		a.Type = coding
	}
	return a, nil
}

func firstIdentifierValue(resource fhir.Object) *string {
	for _, ident := range fhir.GetObjects(resource, "identifier") {
		if v, ok := fhir.GetString(ident, "value"); ok && strings.TrimSpace(v) != "" {
			return &v
		}
	}
	return nil
}

type responseOptions struct {
	classification *fhir.Coding
}

// ResponseOption adjusts ToResponse.
type ResponseOption func(*responseOptions)

// WithClassification attaches c as the organization type coding, replacing
// any stored type.
func WithClassification(c fhir.Coding) ResponseOption {
	return func(o *responseOptions) { o.classification = &c }
}

// ToResponse encodes org as an Organization resource.
func ToResponse(org *Organization, opts ...ResponseOption) fhir.Object {
	var ro responseOptions
	for _, opt := range opts {
		opt(&ro)
	}

	result := fhir.Object{
		"resourceType": ResourceType,
		"id":           org.ResponseID(),
		"name":         org.Name,
	}
	if !org.UpdatedAt.IsZero() {
		result["meta"] = fhir.Meta{LastUpdated: org.UpdatedAt}
	}

	if org.RegistrationNo != nil {
		result["identifier"] = []fhir.Identifier{{
			System: fhir.SystemRegistrationNo,
			Value:  *org.RegistrationNo,
		}}
	}

	var telecoms []fhir.ContactPoint
	if org.Phone != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "phone", Value: *org.Phone})
	}
	if org.Website != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "url", Value: *org.Website})
	}
	if len(telecoms) > 0 {
		result["telecom"] = telecoms
	}

	if org.Address != nil {
		result["address"] = []fhir.Address{address.Encode(*org.Address)}
	}

	coding := org.Type
	if ro.classification != nil {
		coding = ro.classification
	}
	if coding != nil {
		c := *coding
		if c.System == "" && c.Code != "" {
			c.System = fhir.SystemOrganizationType
		}
		result["type"] = []fhir.CodeableConcept{{Coding: []fhir.Coding{c}}}
	}

	verified := org.IsVerified
	var exts []fhir.Extension
	exts = fhir.AppendBool(exts, fhir.ExtIsVerified, &verified)
	exts = fhir.AppendString(exts, fhir.ExtRegistrationNo, org.RegistrationNo)
	exts = fhir.AppendURL(exts, fhir.ExtImage, org.ImageURL)
	if len(org.Departments) > 0 {
		exts = fhir.AppendJSON(exts, fhir.ExtDepartments, org.Departments)
	}
	result["extension"] = exts

	return result
}
