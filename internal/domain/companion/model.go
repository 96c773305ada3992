package companion

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vetcare/practice/internal/platform/identifier"
)

// Companions are exchanged as Patient resources.
const ResourceType = "Patient"

const (
	FieldName      = "name"
	FieldSpecies   = "species"
	FieldStatus    = "status"
	FieldMicrochip = "microchip"
	FieldPhotoURL  = "photoUrl"
	FieldPhotoKey  = "photoKey"
)

// Companion is an animal under the practice's care.
type Companion struct {
	Key         primitive.ObjectID `bson:"_id,omitempty"`
	FHIRID      string             `bson:"fhirId,omitempty"`
	Name        string             `bson:"name"`
	Species     string             `bson:"species"`
	Breed       *string            `bson:"breed,omitempty"`
	DateOfBirth string             `bson:"dateOfBirth"`
	Gender      *string            `bson:"gender,omitempty"`
	Weight      *float64           `bson:"weight,omitempty"`
	Neutered    *bool              `bson:"neutered,omitempty"`
	Insured     *bool              `bson:"insured,omitempty"`
	Status      string             `bson:"status"`
	Source      *string            `bson:"source,omitempty"`
	Microchip   *string            `bson:"microchip,omitempty"`
	PhotoURL    *string            `bson:"photoUrl,omitempty"`
	PhotoKey    *string            `bson:"photoKey,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (c *Companion) GetKey() primitive.ObjectID { return c.Key }
func (c *Companion) SetKey(key primitive.ObjectID) { c.Key = key }
func (c *Companion) SetExternalID(id string) { c.FHIRID = id }

func (c *Companion) ResponseID() string {
	return identifier.ResponseID(c.Key, c.FHIRID)
}
