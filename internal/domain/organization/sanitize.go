package organization

import (
	"fmt"

	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/sanitize"
)

// Fields is the store-ready form of Attributes. Unset optional fields stay
// nil and are dropped by sanitize.Compact before an update.
type Fields struct {
	Name           string           `bson:"name"`
	RegistrationNo *string          `bson:"registrationNo,omitempty"`
	ImageURL       *string          `bson:"imageURL,omitempty"`
	Phone          *string          `bson:"phone,omitempty"`
	Website        *string          `bson:"website,omitempty"`
	Address        *address.Address `bson:"address,omitempty"`
	Departments    []Department     `bson:"departments,omitempty"`
	IsVerified     *bool            `bson:"isVerified,omitempty"`
	Type           *fhir.Coding     `bson:"type,omitempty"`
}

// Sanitize validates a and returns its store-ready form, stopping at the
// first violation.
func Sanitize(a Attributes) (Fields, error) {
	var (
		f   Fields
		err error
	)
	name := ""
	if a.Name != nil {
		name = *a.Name
	}
	if f.Name, err = sanitize.Required("name", name); err != nil {
		return Fields{}, err
	}
	if f.RegistrationNo, err = sanitize.Optional("registrationNo", a.RegistrationNo); err != nil {
		return Fields{}, err
	}
	if f.ImageURL, err = sanitize.URL("imageURL", a.ImageURL); err != nil {
		return Fields{}, err
	}
	if f.Phone, err = sanitize.Optional("phone", a.Phone); err != nil {
		return Fields{}, err
	}
	if f.Website, err = sanitize.URL("website", a.Website); err != nil {
		return Fields{}, err
	}
	if a.Address != nil {
		addr, err := address.Sanitize("address", *a.Address)
		if err != nil {
			return Fields{}, err
		}
		f.Address = &addr
	}
	if f.Departments, err = sanitizeDepartments(a.Departments); err != nil {
		return Fields{}, err
	}
	f.IsVerified = a.IsVerified
	if f.Type, err = sanitizeCoding("type", a.Type); err != nil {
		return Fields{}, err
	}
	return f, nil
}

func sanitizeDepartments(deps []Department) ([]Department, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	out := make([]Department, 0, len(deps))
	for i, d := range deps {
		prefix := fmt.Sprintf("departments[%d]", i)
		name, err := sanitize.Required(prefix+".name", d.Name)
		if err != nil {
			return nil, err
		}
		dep := Department{Name: name}
		for j, svc := range d.Services {
			s, err := sanitizeService(fmt.Sprintf("%s.services[%d]", prefix, j), svc)
			if err != nil {
				return nil, err
			}
			dep.Services = append(dep.Services, s)
		}
		out = append(out, dep)
	}
	return out, nil
}

func sanitizeService(prefix string, s DepartmentService) (DepartmentService, error) {
	var (
		out DepartmentService
		err error
	)
	if out.Name, err = sanitize.Required(prefix+".name", s.Name); err != nil {
		return DepartmentService{}, err
	}
	if out.Description, err = sanitize.Clean(prefix+".description", s.Description); err != nil {
		return DepartmentService{}, err
	}
	if out.Availability, err = sanitize.Clean(prefix+".availability", s.Availability); err != nil {
		return DepartmentService{}, err
	}
	if out.ResponseTime, err = sanitize.Clean(prefix+".responseTime", s.ResponseTime); err != nil {
		return DepartmentService{}, err
	}
	if s.EstimatedCost != nil {
		cost, err := sanitize.Number(prefix+".estimatedCost", *s.EstimatedCost)
		if err != nil {
			return DepartmentService{}, err
		}
		if *cost < 0 {
			return DepartmentService{}, apperr.Validation(prefix+".estimatedCost", "must not be negative")
		}
		out.EstimatedCost = cost
	}
	return out, nil
}

func sanitizeCoding(field string, c *fhir.Coding) (*fhir.Coding, error) {
	if c == nil {
		return nil, nil
	}
	var (
		out fhir.Coding
		err error
	)
	if out.System, err = sanitize.Clean(field+".system", c.System); err != nil {
		return nil, err
	}
	if out.Code, err = sanitize.Clean(field+".code", c.Code); err != nil {
		return nil, err
	}
	if out.Display, err = sanitize.Clean(field+".display", c.Display); err != nil {
		return nil, err
	}
	if out.Code == "" && out.Display == "" {
		return nil, nil
	}
	return &out, nil
}
