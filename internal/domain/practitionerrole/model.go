package practitionerrole

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vetcare/practice/internal/platform/identifier"
)

const ResourceType = "PractitionerRole"

const (
	FieldPractitioner = "practitioner"
	FieldOrganization = "organization"
	FieldRoleCode     = "roleCode"
	FieldActive       = "active"
)

// referenceFields drive reference-shaped lookups.
var referenceFields = []identifier.ReferenceField{
	{Kind: "Practitioner", Field: FieldPractitioner},
	{Kind: "Organization", Field: FieldOrganization},
}

// PractitionerRole maps a practitioner to an organization in a role. The
// (practitioner, organization, roleCode) triple is unique.
type PractitionerRole struct {
	Key          primitive.ObjectID `bson:"_id,omitempty"`
	FHIRID       string             `bson:"fhirId,omitempty"`
	Practitioner string             `bson:"practitioner"`
	Organization string             `bson:"organization"`
	RoleCode     string             `bson:"roleCode"`
	RoleDisplay  *string            `bson:"roleDisplay,omitempty"`
	RoleSystem   *string            `bson:"roleSystem,omitempty"`
	Active       bool               `bson:"active"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (r *PractitionerRole) GetKey() primitive.ObjectID { return r.Key }
func (r *PractitionerRole) SetKey(key primitive.ObjectID) { r.Key = key }
func (r *PractitionerRole) SetExternalID(id string) { r.FHIRID = id }

func (r *PractitionerRole) ResponseID() string {
	return identifier.ResponseID(r.Key, r.FHIRID)
}
