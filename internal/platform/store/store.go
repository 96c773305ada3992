// Package store is the document-store boundary. Records are addressed by an
// ObjectID storage key and queried with field/value equality filters only;
// every backend renders a Filter as an explicit equality so that caller input
// can never become a query operator.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("store: document not found")
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Filter matches documents whose Field equals Value.
type Filter struct {
	Field string
	Value interface{}
}

// Query matches documents satisfying every All filter and, when Any is
// non-empty, at least one Any filter. The zero Query matches everything.
type Query struct {
	All []Filter
	Any []Filter
}

// Where returns a single-filter query.
func Where(field string, value interface{}) Query {
	return Query{All: []Filter{{Field: field, Value: value}}}
}

// And returns a copy of q with an extra conjunctive filter.
func (q Query) And(field string, value interface{}) Query {
	all := make([]Filter, 0, len(q.All)+1)
	all = append(all, q.All...)
	all = append(all, Filter{Field: field, Value: value})
	return Query{All: all, Any: q.Any}
}

func (q Query) IsEmpty() bool { return len(q.All) == 0 && len(q.Any) == 0 }

func (q Query) String() string {
	return fmt.Sprintf("all=%v any=%v", q.All, q.Any)
}

type SortField struct {
	Field string
	Desc  bool
}

type FindOptions struct {
	Limit  int
	Offset int
	Sort   []SortField
}

// Index describes a secondary index. Unique indexes are how the store, not
// application code, guarantees natural-key uniqueness.
type Index struct {
	Name   string
	Fields []string
	Unique bool
	Sparse bool
}

// Driver operates on raw BSON documents of one collection.
type Driver interface {
	FindOne(ctx context.Context, q Query) (bson.Raw, error)
	Find(ctx context.Context, q Query, opts FindOptions) ([]bson.Raw, error)
	Count(ctx context.Context, q Query) (int64, error)
	Insert(ctx context.Context, doc bson.Raw) error
	UpdateOne(ctx context.Context, q Query, set bson.M) (bson.Raw, error)
	DeleteOne(ctx context.Context, q Query) (bool, error)
	EnsureIndexes(ctx context.Context, indexes []Index) error
}

// Backend hands out collection drivers.
type Backend interface {
	Name() string
	Collection(name string) Driver
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Keyed is satisfied by pointers to records carrying a storage key.
type Keyed[T any] interface {
	*T
	GetKey() primitive.ObjectID
	SetKey(primitive.ObjectID)
}

// Collection is a typed view over a Driver.
type Collection[T any, PT Keyed[T]] struct {
	name   string
	driver Driver
}

// Open returns the typed collection name on backend b.
func Open[T any, PT Keyed[T]](b Backend, name string) *Collection[T, PT] {
	return &Collection[T, PT]{name: name, driver: b.Collection(name)}
}

func (c *Collection[T, PT]) Name() string { return c.name }

func (c *Collection[T, PT]) EnsureIndexes(ctx context.Context, indexes ...Index) error {
	if err := c.driver.EnsureIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("ensure indexes on %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T, PT]) FindOne(ctx context.Context, q Query) (*T, error) {
	raw, err := c.driver.FindOne(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

func (c *Collection[T, PT]) Find(ctx context.Context, q Query, opts FindOptions) ([]*T, error) {
	raws, err := c.driver.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		rec, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection[T, PT]) Count(ctx context.Context, q Query) (int64, error) {
	return c.driver.Count(ctx, q)
}

// Insert stores rec, assigning a fresh storage key when it has none. On
// failure a freshly assigned key is cleared again.
func (c *Collection[T, PT]) Insert(ctx context.Context, rec *T) error {
	p := PT(rec)
	assigned := false
	if p.GetKey().IsZero() {
		p.SetKey(primitive.NewObjectID())
		assigned = true
	}
	doc, err := bson.Marshal(rec)
	if err != nil {
		if assigned {
			p.SetKey(primitive.NilObjectID)
		}
		return fmt.Errorf("encode %s document: %w", c.name, err)
	}
	if err := c.driver.Insert(ctx, doc); err != nil {
		if assigned {
			p.SetKey(primitive.NilObjectID)
		}
		return err
	}
	return nil
}

// UpdateOne applies set to the first document matching q and returns the
// document as it is after the update.
func (c *Collection[T, PT]) UpdateOne(ctx context.Context, q Query, set bson.M) (*T, error) {
	raw, err := c.driver.UpdateOne(ctx, q, set)
	if err != nil {
		return nil, err
	}
	return c.decode(raw)
}

func (c *Collection[T, PT]) DeleteOne(ctx context.Context, q Query) (bool, error) {
	return c.driver.DeleteOne(ctx, q)
}

func (c *Collection[T, PT]) decode(raw bson.Raw) (*T, error) {
	rec := new(T)
	if err := bson.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", c.name, err)
	}
	return rec, nil
}

func keyOf(doc bson.Raw) (primitive.ObjectID, error) {
	v, err := doc.LookupErr("_id")
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("document has no _id: %w", err)
	}
	oid, ok := v.ObjectIDOK()
	if !ok {
		return primitive.NilObjectID, errors.New("document _id is not an ObjectID")
	}
	return oid, nil
}
