package companion

import (
	"strings"

	"github.com/vetcare/practice/internal/platform/fhir"
)

// Attributes is the decoded content of a Patient resource. Coded, numeric
// and boolean attributes are kept as sent so sanitizing can reject wrong
// types.
type Attributes struct {
	ID          *string
	Name        *string
	Species     interface{}
	Breed       *string
	DateOfBirth *string
	Gender      interface{}
	Weight      interface{}
	Neutered    interface{}
	Insured     interface{}
	Status      interface{}
	Source      interface{}
	Microchip   *string
	PhotoURL    *string
	PhotoKey    *string
}

// FromRequest decodes a Patient resource.
func FromRequest(resource fhir.Object) (Attributes, error) {
	if err := fhir.RequireResourceType(resource, ResourceType); err != nil {
		return Attributes{}, err
	}

	a := Attributes{
		ID:          fhir.GetStringPtr(resource, "id"),
		Name:        decodeName(fhir.GetFirstObject(resource, "name")),
		Species:     resource["species"],
		Breed:       fhir.GetStringPtr(resource, "breed"),
		DateOfBirth: fhir.GetStringPtr(resource, "birthDate"),
		Gender:      resource["gender"],
		Weight:      resource["weight"],
		Neutered:    resource["neutered"],
		Insured:     resource["insured"],
		Status:      resource["status"],
		Source:      resource["source"],
	}

	for _, ident := range fhir.GetObjects(resource, "identifier") {
		if system, _ := fhir.GetString(ident, "system"); system != fhir.SystemMicrochip {
			continue
		}
		a.Microchip = fhir.GetStringPtr(ident, "value")
		break
	}

	for _, photo := range fhir.GetObjects(resource, "photo") {
		url, ok := fhir.GetString(photo, "url")
		if !ok || strings.TrimSpace(url) == "" {
			continue
		}
		a.PhotoURL = &url
		if key, ok := fhir.ExtensionString(fhir.Extensions(photo), fhir.ExtStorageKey); ok {
			a.PhotoKey = &key
		}
		break
	}
	return a, nil
}

// decodeName reads the free-text name, falling back to the first given name.
func decodeName(name fhir.Object) *string {
	if name == nil {
		return nil
	}
	if text, ok := fhir.GetString(name, "text"); ok && strings.TrimSpace(text) != "" {
		return &text
	}
	if given := fhir.GetStrings(name, "given"); len(given) > 0 {
		return &given[0]
	}
	return nil
}

// ToResponse encodes c as a Patient resource.
func ToResponse(c *Companion) fhir.Object {
	result := fhir.Object{
		"resourceType": ResourceType,
		"id":           c.ResponseID(),
		"name":         []fhir.HumanName{{Text: c.Name}},
		"species":      c.Species,
		"birthDate":    c.DateOfBirth,
		"status":       c.Status,
	}
	if !c.UpdatedAt.IsZero() {
		result["meta"] = fhir.Meta{LastUpdated: c.UpdatedAt}
	}
	if c.Breed != nil {
		result["breed"] = *c.Breed
	}
	if c.Gender != nil {
		result["gender"] = *c.Gender
	}
	if c.Weight != nil {
		result["weight"] = *c.Weight
	}
	if c.Neutered != nil {
		result["neutered"] = *c.Neutered
	}
	if c.Insured != nil {
		result["insured"] = *c.Insured
	}
	if c.Source != nil {
		result["source"] = *c.Source
	}
	if c.Microchip != nil {
		result["identifier"] = []fhir.Identifier{{System: fhir.SystemMicrochip, Value: *c.Microchip}}
	}
	if c.PhotoURL != nil {
		photo := fhir.Attachment{URL: *c.PhotoURL}
		photo.Extension = fhir.AppendString(nil, fhir.ExtStorageKey, c.PhotoKey)
		result["photo"] = []fhir.Attachment{photo}
	}
	return result
}
