package parent

import (
	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/sanitize"
)

// Fields is the store-ready form of Attributes.
type Fields struct {
	FirstName       string          `bson:"firstName"`
	LastName        *string         `bson:"lastName,omitempty"`
	Age             int             `bson:"age"`
	Address         address.Address `bson:"address"`
	PhoneNumber     *string         `bson:"phoneNumber,omitempty"`
	ProfileImageURL *string         `bson:"profileImageUrl,omitempty"`
	ProfileImageKey *string         `bson:"profileImageKey,omitempty"`
}

func Sanitize(a Attributes) (Fields, error) {
	var (
		f   Fields
		err error
	)
	first := ""
	if a.FirstName != nil {
		first = *a.FirstName
	}
	if f.FirstName, err = sanitize.Required("firstName", first); err != nil {
		return Fields{}, err
	}
	if f.LastName, err = sanitize.Optional("lastName", a.LastName); err != nil {
		return Fields{}, err
	}
	if f.Age, err = sanitize.NonNegativeInt("age", a.Age); err != nil {
		return Fields{}, err
	}
	var addr address.Address
	if a.Address != nil {
		addr = *a.Address
	}
	if f.Address, err = address.SanitizeRequired("address", addr); err != nil {
		return Fields{}, err
	}
	if f.PhoneNumber, err = sanitize.Optional("phoneNumber", a.PhoneNumber); err != nil {
		return Fields{}, err
	}
	if f.ProfileImageURL, err = sanitize.URL("profileImageUrl", a.ProfileImageURL); err != nil {
		return Fields{}, err
	}
	if f.ProfileImageKey, err = sanitize.Optional("profileImageKey", a.ProfileImageKey); err != nil {
		return Fields{}, err
	}
	return f, nil
}
