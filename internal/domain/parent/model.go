package parent

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/identifier"
)

// Parents are exchanged as RelatedPerson resources.
const ResourceType = "RelatedPerson"

const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldProfileImageURL = "profileImageUrl"
	FieldProfileImageKey = "profileImageKey"
)

// Parent is the owner or guardian of one or more companions.
type Parent struct {
	Key             primitive.ObjectID `bson:"_id,omitempty"`
	FHIRID          string             `bson:"fhirId,omitempty"`
	FirstName       string             `bson:"firstName"`
	LastName        *string            `bson:"lastName,omitempty"`
	Age             int                `bson:"age"`
	Address         address.Address    `bson:"address"`
	PhoneNumber     *string            `bson:"phoneNumber,omitempty"`
	ProfileImageURL *string            `bson:"profileImageUrl,omitempty"`
	ProfileImageKey *string            `bson:"profileImageKey,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (p *Parent) GetKey() primitive.ObjectID { return p.Key }
func (p *Parent) SetKey(key primitive.ObjectID) { p.Key = key }
func (p *Parent) SetExternalID(id string) { p.FHIRID = id }

func (p *Parent) ResponseID() string {
	return identifier.ResponseID(p.Key, p.FHIRID)
}

// FullName joins the first and last name.
func (p *Parent) FullName() string {
	if p.LastName == nil || *p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + *p.LastName
}
