package companion

import (
	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/sanitize"
	"github.com/vetcare/practice/pkg/fhirmodels"
)

// Fields is the store-ready form of Attributes.
type Fields struct {
	Name        string   `bson:"name"`
	Species     string   `bson:"species"`
	Breed       *string  `bson:"breed,omitempty"`
	DateOfBirth string   `bson:"dateOfBirth"`
	Gender      *string  `bson:"gender,omitempty"`
	Weight      *float64 `bson:"weight,omitempty"`
	Neutered    *bool    `bson:"neutered,omitempty"`
	Insured     *bool    `bson:"insured,omitempty"`
	Status      *string  `bson:"status,omitempty"`
	Source      *string  `bson:"source,omitempty"`
	Microchip   *string  `bson:"microchip,omitempty"`
	PhotoURL    *string  `bson:"photoUrl,omitempty"`
	PhotoKey    *string  `bson:"photoKey,omitempty"`
}

func Sanitize(a Attributes) (Fields, error) {
	var (
		f   Fields
		err error
	)
	if f.Name, err = sanitize.Required("name", deref(a.Name)); err != nil {
		return Fields{}, err
	}
	if f.Species, err = sanitize.RequiredEnum("species", a.Species, fhirmodels.Species...); err != nil {
		return Fields{}, err
	}
	if f.Breed, err = sanitize.Optional("breed", a.Breed); err != nil {
		return Fields{}, err
	}
	if f.DateOfBirth, err = sanitize.Date("dateOfBirth", deref(a.DateOfBirth)); err != nil {
		return Fields{}, err
	}
	if f.Gender, err = sanitize.Enum("gender", a.Gender, fhirmodels.Genders...); err != nil {
		return Fields{}, err
	}
	if f.Weight, err = sanitize.Number("weight", a.Weight); err != nil {
		return Fields{}, err
	}
	if f.Weight != nil && *f.Weight < 0 {
		return Fields{}, apperr.Validation("weight", "must not be negative")
	}
	if f.Neutered, err = sanitize.Bool("neutered", a.Neutered); err != nil {
		return Fields{}, err
	}
	if f.Insured, err = sanitize.Bool("insured", a.Insured); err != nil {
		return Fields{}, err
	}
	if f.Status, err = sanitize.Enum("status", a.Status, fhirmodels.Statuses...); err != nil {
		return Fields{}, err
	}
	if f.Source, err = sanitize.Enum("source", a.Source, fhirmodels.Sources...); err != nil {
		return Fields{}, err
	}
	if f.Microchip, err = sanitize.Optional("microchip", a.Microchip); err != nil {
		return Fields{}, err
	}
	if f.PhotoURL, err = sanitize.URL("photoUrl", a.PhotoURL); err != nil {
		return Fields{}, err
	}
	if f.PhotoKey, err = sanitize.Optional("photoKey", a.PhotoKey); err != nil {
		return Fields{}, err
	}
	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
