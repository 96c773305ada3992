package parent

import (
	"strings"

	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/fhir"
)

// Attributes is the decoded content of a RelatedPerson resource.
type Attributes struct {
	ID              *string
	FirstName       *string
	LastName        *string
	Age             *int
	Address         *address.Address
	PhoneNumber     *string
	ProfileImageURL *string
	ProfileImageKey *string
}

// FromRequest decodes a RelatedPerson resource.
func FromRequest(resource fhir.Object) (Attributes, error) {
	if err := fhir.RequireResourceType(resource, ResourceType); err != nil {
		return Attributes{}, err
	}

	a := Attributes{
		ID:          fhir.GetStringPtr(resource, "id"),
		PhoneNumber: fhir.FirstTelecom(resource, "phone"),
	}
	a.FirstName, a.LastName = decodeName(fhir.GetFirstObject(resource, "name"))

	if age, ok := fhir.ExtensionInteger(fhir.Extensions(resource), fhir.ExtParentAge); ok {
		a.Age = &age
	}
	if addr, ok := address.DecodeField(resource, "address"); ok {
		a.Address = &addr
	}
	for _, photo := range fhir.GetObjects(resource, "photo") {
		url, ok := fhir.GetString(photo, "url")
		if !ok || strings.TrimSpace(url) == "" {
			continue
		}
		a.ProfileImageURL = &url
		if key, ok := fhir.ExtensionString(fhir.Extensions(photo), fhir.ExtStorageKey); ok {
			a.ProfileImageKey = &key
		}
		break
	}
	return a, nil
}

// decodeName prefers the structured given/family parts and falls back to
// splitting the free-text name: the first word is the first name and the
// rest, joined, is the last name. A structured family without a given name
// still takes its first name from the text.
func decodeName(name fhir.Object) (first, last *string) {
	if name == nil {
		return nil, nil
	}
	text, _ := fhir.GetString(name, "text")
	words := strings.Fields(text)

	given := fhir.GetStrings(name, "given")
	family := fhir.GetStringPtr(name, "family")
	if len(given) > 0 || family != nil {
		switch {
		case len(given) > 0:
			first = &given[0]
		case len(words) > 0:
			first = &words[0]
		}
		return first, family
	}

	if len(words) == 0 {
		return nil, nil
	}
	first = &words[0]
	if len(words) > 1 {
		rest := strings.Join(words[1:], " ")
		last = &rest
	}
	return first, last
}

// ToResponse encodes p as a RelatedPerson resource.
func ToResponse(p *Parent) fhir.Object {
	name := fhir.HumanName{Text: p.FullName(), Given: []string{p.FirstName}}
	if p.LastName != nil {
		name.Family = *p.LastName
	}

	result := fhir.Object{
		"resourceType": ResourceType,
		"id":           p.ResponseID(),
		"name":         []fhir.HumanName{name},
		"address":      []fhir.Address{address.Encode(p.Address)},
	}
	if !p.UpdatedAt.IsZero() {
		result["meta"] = fhir.Meta{LastUpdated: p.UpdatedAt}
	}
	if p.PhoneNumber != nil {
		result["telecom"] = []fhir.ContactPoint{{System: "phone", Value: *p.PhoneNumber}}
	}
	if p.ProfileImageURL != nil {
		photo := fhir.Attachment{URL: *p.ProfileImageURL}
		photo.Extension = fhir.AppendString(nil, fhir.ExtStorageKey, p.ProfileImageKey)
		result["photo"] = []fhir.Attachment{photo}
	}

	age := p.Age
	result["extension"] = fhir.AppendInteger(nil, fhir.ExtParentAge, &age)
	return result
}
