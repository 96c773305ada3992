package parent

import (
	"context"

	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/store"
)

const CollectionName = "parents"

type Collection = store.Collection[Parent, *Parent]

var Indexes = []store.Index{
	{Name: "parents_fhir_id", Fields: []string{identifier.FieldExternalID}, Unique: true, Sparse: true},
	{Name: "parents_name", Fields: []string{FieldLastName, FieldFirstName}},
}

func OpenCollection(b store.Backend) *Collection {
	return store.Open[Parent, *Parent](b, CollectionName)
}

// Migrate creates the collection's indexes.
func Migrate(ctx context.Context, c *Collection) error {
	return c.EnsureIndexes(ctx, Indexes...)
}
