package organization

import (
	"context"

	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/store"
)

const CollectionName = "organizations"

// Collection is the organizations collection.
type Collection = store.Collection[Organization, *Organization]

// Indexes back the external id and the registration number natural key.
var Indexes = []store.Index{
	{Name: "organizations_fhir_id", Fields: []string{identifier.FieldExternalID}, Unique: true, Sparse: true},
	{Name: "organizations_registration_no", Fields: []string{FieldRegistrationNo}, Unique: true, Sparse: true},
}

func OpenCollection(b store.Backend) *Collection {
	return store.Open[Organization, *Organization](b, CollectionName)
}

// Migrate creates the collection's indexes.
func Migrate(ctx context.Context, c *Collection) error {
	return c.EnsureIndexes(ctx, Indexes...)
}
