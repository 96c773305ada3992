// Package address converts between the flat stored address and the FHIR
// Address datatype. Coordinates travel in the standard geolocation extension
// and only ever as a complete latitude/longitude pair.
package address

import (
	"math"

	"github.com/vetcare/practice/internal/platform/fhir"
)

type Address struct {
	AddressLine string   `bson:"addressLine" json:"addressLine"`
	Country     string   `bson:"country" json:"country"`
	City        string   `bson:"city" json:"city"`
	State       string   `bson:"state" json:"state"`
	PostalCode  string   `bson:"postalCode" json:"postalCode"`
	Latitude    *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// HasCoordinates reports whether both coordinates are set.
func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Decode reads a FHIR Address object. A geolocation extension missing either
// child, or carrying a non-numeric one, yields no coordinates at all.
func Decode(o fhir.Object) Address {
	var a Address
	if lines := fhir.GetStrings(o, "line"); len(lines) > 0 {
		a.AddressLine = lines[0]
	}
	a.Country, _ = fhir.GetString(o, "country")
	a.City, _ = fhir.GetString(o, "city")
	a.State, _ = fhir.GetString(o, "state")
	a.PostalCode, _ = fhir.GetString(o, "postalCode")

	geo := fhir.FindExtension(fhir.Extensions(o), fhir.ExtGeolocation)
	if geo == nil {
		return a
	}
	children := fhir.Extensions(geo)
	lat, latOK := fhir.ExtensionDecimal(children, fhir.GeoLatitude)
	lng, lngOK := fhir.ExtensionDecimal(children, fhir.GeoLongitude)
	if latOK && lngOK {
		a.Latitude = &lat
		a.Longitude = &lng
	}
	return a
}

// DecodeField reads the address held at o[key], reporting false when there
// is none.
func DecodeField(o fhir.Object, key string) (Address, bool) {
	if obj := fhir.GetObject(o, key); obj != nil {
		return Decode(obj), true
	}
	if first := fhir.GetFirstObject(o, key); first != nil {
		return Decode(first), true
	}
	return Address{}, false
}

// Encode renders a as a FHIR Address.
func Encode(a Address) fhir.Address {
	out := fhir.Address{
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
	if a.AddressLine != "" {
		out.Line = []string{a.AddressLine}
	}
	if a.HasCoordinates() && finite(*a.Latitude) && finite(*a.Longitude) {
		lat, lng := *a.Latitude, *a.Longitude
		out.Extension = []fhir.Extension{{
			URL: fhir.ExtGeolocation,
			Extension: []fhir.Extension{
				{URL: fhir.GeoLatitude, ValueDecimal: &lat},
				{URL: fhir.GeoLongitude, ValueDecimal: &lng},
			},
		}}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
