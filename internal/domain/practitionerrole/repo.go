package practitionerrole

import (
	"context"

	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/store"
)

const CollectionName = "practitioner_roles"

type Collection = store.Collection[PractitionerRole, *PractitionerRole]

// Indexes include the unique natural key that keeps concurrent upserts of
// the same triple from both creating a record.
var Indexes = []store.Index{
	{Name: "practitioner_roles_fhir_id", Fields: []string{identifier.FieldExternalID}, Unique: true, Sparse: true},
	{Name: "practitioner_roles_natural_key", Fields: []string{FieldPractitioner, FieldOrganization, FieldRoleCode}, Unique: true},
	{Name: "practitioner_roles_organization", Fields: []string{FieldOrganization}},
}

func OpenCollection(b store.Backend) *Collection {
	return store.Open[PractitionerRole, *PractitionerRole](b, CollectionName)
}

// Migrate creates the collection's indexes.
func Migrate(ctx context.Context, c *Collection) error {
	return c.EnsureIndexes(ctx, Indexes...)
}

func naturalKey(f Fields) store.Query {
	return store.Where(FieldPractitioner, f.Practitioner).
		And(FieldOrganization, f.Organization).
		And(FieldRoleCode, f.RoleCode)
}
