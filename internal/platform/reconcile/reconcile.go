// Package reconcile implements create-or-update against a collection whose
// records can be addressed by storage key, by external id, or by a natural
// key.
//
// Upsert walks three states in order: update by the supplied identifier,
// update by natural key, create. The store's unique indexes are the only
// arbiter of concurrent creates; a create that loses the race falls back to
// updating the winner.
package reconcile

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/internal/platform/store"
)

// Outcome names the branch an upsert resolved through.
type Outcome string

const (
	OutcomeUpdatedByID         Outcome = "updated_by_id"
	OutcomeUpdatedByNaturalKey Outcome = "updated_by_natural_key"
	OutcomeCreated             Outcome = "created"
)

// Identified records can take an external id at creation time.
type Identified[T any] interface {
	store.Keyed[T]
	SetExternalID(string)
}

// Request describes one upsert.
type Request[T any] struct {
	// ID is the caller-supplied identifier, if any.
	ID *identifier.ID
	// NaturalKey is the dedup lookup; nil when the entity has none or the
	// payload does not carry it.
	NaturalKey *store.Query
	// Set is the compacted update document.
	Set bson.M
	// New builds the record to insert when nothing matches.
	New func() *T
}

type Result[T any] struct {
	Record  *T
	Created bool
	Outcome Outcome
}

// Upsert resolves req against coll.
func Upsert[T any, PT Identified[T]](ctx context.Context, coll *store.Collection[T, PT], req Request[T]) (*Result[T], error) {
	if req.ID != nil {
		rec, err := update(ctx, coll, req.ID.Query(), req.Set)
		if err == nil {
			return &Result[T]{Record: rec, Outcome: OutcomeUpdatedByID}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	if req.NaturalKey != nil {
		rec, err := update(ctx, coll, *req.NaturalKey, withoutIdentity(req.Set))
		if err == nil {
			return &Result[T]{Record: rec, Outcome: OutcomeUpdatedByNaturalKey}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	rec, err := Create[T, PT](ctx, coll, req.ID, req.New)
	if err == nil {
		return &Result[T]{Record: rec, Created: true, Outcome: OutcomeCreated}, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return nil, err
	}

	// Lost a create race. Whoever won now matches one of the lookups.
	if req.NaturalKey != nil {
		if rec, uerr := update(ctx, coll, *req.NaturalKey, withoutIdentity(req.Set)); uerr == nil {
			return &Result[T]{Record: rec, Outcome: OutcomeUpdatedByNaturalKey}, nil
		}
	}
	if req.ID != nil {
		if rec, uerr := update(ctx, coll, req.ID.Query(), req.Set); uerr == nil {
			return &Result[T]{Record: rec, Outcome: OutcomeUpdatedByID}, nil
		}
	}
	return nil, err
}

// Create inserts the record built by newRecord, stamped with id. A storage
// key id becomes the record's key; an external id becomes its external id.
// Unique index violations are reported as conflicts.
func Create[T any, PT Identified[T]](ctx context.Context, coll *store.Collection[T, PT], id *identifier.ID, newRecord func() *T) (*T, error) {
	rec := newRecord()
	if id != nil {
		switch id.Kind() {
		case identifier.StorageKey:
			PT(rec).SetKey(id.StorageKey())
		case identifier.External:
			PT(rec).SetExternalID(id.String())
		}
	}
	if err := coll.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, apperr.Conflict("%s record already exists", coll.Name())
		}
		return nil, apperr.Wrap(err, "insert "+coll.Name())
	}
	return rec, nil
}

func update[T any, PT Identified[T]](ctx context.Context, coll *store.Collection[T, PT], q store.Query, set bson.M) (*T, error) {
	rec, err := coll.UpdateOne(ctx, q, set)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, err
	case errors.Is(err, store.ErrDuplicateKey):
		return nil, apperr.Conflict("update of %s collides with an existing record", coll.Name())
	default:
		return nil, apperr.Wrap(err, "update "+coll.Name())
	}
}

// withoutIdentity drops identity fields so a natural-key match keeps the ids
// it already has.
func withoutIdentity(set bson.M) bson.M {
	out := make(bson.M, len(set))
	for k, v := range set {
		if k == identifier.FieldStorageKey || k == identifier.FieldExternalID {
			continue
		}
		out[k] = v
	}
	return out
}
