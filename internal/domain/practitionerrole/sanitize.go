package practitionerrole

import (
	"github.com/vetcare/practice/internal/platform/sanitize"
	"github.com/vetcare/practice/pkg/fhirmodels"
)

// Fields is the store-ready form of Attributes.
type Fields struct {
	Practitioner string  `bson:"practitioner"`
	Organization string  `bson:"organization"`
	RoleCode     string  `bson:"roleCode"`
	RoleDisplay  *string `bson:"roleDisplay,omitempty"`
	RoleSystem   *string `bson:"roleSystem,omitempty"`
	Active       *bool   `bson:"active,omitempty"`
}

func Sanitize(a Attributes) (Fields, error) {
	var (
		f   Fields
		err error
	)
	if f.Practitioner, err = sanitize.Required("practitioner", deref(a.Practitioner)); err != nil {
		return Fields{}, err
	}
	if f.Organization, err = sanitize.Required("organization", deref(a.Organization)); err != nil {
		return Fields{}, err
	}
	if f.RoleCode, err = sanitize.RequiredEnum("roleCode", a.RoleCode, fhirmodels.Roles...); err != nil {
		return Fields{}, err
	}
	if f.RoleDisplay, err = sanitize.Optional("roleDisplay", a.RoleDisplay); err != nil {
		return Fields{}, err
	}
	if f.RoleSystem, err = sanitize.URL("roleSystem", a.RoleSystem); err != nil {
		return Fields{}, err
	}
	f.Active = a.Active
	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
