package companion

import (
	"context"

	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/store"
)

const CollectionName = "companions"

type Collection = store.Collection[Companion, *Companion]

var Indexes = []store.Index{
	{Name: "companions_fhir_id", Fields: []string{identifier.FieldExternalID}, Unique: true, Sparse: true},
	{Name: "companions_species_status", Fields: []string{FieldSpecies, FieldStatus}},
	{Name: "companions_microchip", Fields: []string{FieldMicrochip}, Sparse: true},
}

func OpenCollection(b store.Backend) *Collection {
	return store.Open[Companion, *Companion](b, CollectionName)
}

func Migrate(ctx context.Context, c *Collection) error {
	return c.EnsureIndexes(ctx, Indexes...)
}
