package organization

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vetcare/practice/internal/domain/address"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
)

const ResourceType = "Organization"

// Store field names used in queries and indexes.
const (
	FieldName           = "name"
	FieldRegistrationNo = "registrationNo"
)

// DepartmentService is one service a department offers.
type DepartmentService struct {
	Name          string   `bson:"name" json:"name"`
	Description   string   `bson:"description,omitempty" json:"description,omitempty"`
	EstimatedCost *float64 `bson:"estimatedCost,omitempty" json:"estimatedCost,omitempty"`
	Availability  string   `bson:"availability,omitempty" json:"availability,omitempty"`
	ResponseTime  string   `bson:"responseTime,omitempty" json:"responseTime,omitempty"`
}

type Department struct {
	Name     string              `bson:"name" json:"name"`
	Services []DepartmentService `bson:"services,omitempty" json:"services,omitempty"`
}

// Organization is a stored clinic, hospital or partner organization.
type Organization struct {
	Key            primitive.ObjectID `bson:"_id,omitempty"`
	FHIRID         string             `bson:"fhirId,omitempty"`
	Name           string             `bson:"name"`
	RegistrationNo *string            `bson:"registrationNo,omitempty"`
	ImageURL       *string            `bson:"imageURL,omitempty"`
	Phone          *string            `bson:"phone,omitempty"`
	Website        *string            `bson:"website,omitempty"`
	Address        *address.Address   `bson:"address,omitempty"`
	Departments    []Department       `bson:"departments,omitempty"`
	IsVerified     bool               `bson:"isVerified"`
	Type           *fhir.Coding       `bson:"type,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (o *Organization) GetKey() primitive.ObjectID { return o.Key }
func (o *Organization) SetKey(key primitive.ObjectID) { o.Key = key }
func (o *Organization) SetExternalID(id string) { o.FHIRID = id }

// ResponseID is the id exposed to API callers.
func (o *Organization) ResponseID() string {
	return identifier.ResponseID(o.Key, o.FHIRID)
}
