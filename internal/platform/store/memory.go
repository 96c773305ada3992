package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Memory is an in-process Backend. It honours the full Driver contract,
// unique indexes included, and is used in development and tests.
type Memory struct {
	mu    sync.Mutex
	colls map[string]*memoryCollection
}

func NewMemory() *Memory {
	return &Memory{colls: make(map[string]*memoryCollection)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Collection(name string) Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colls[name]
	if !ok {
		c = &memoryCollection{mem: m}
		m.colls[name] = c
	}
	return c
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }
func (m *Memory) Close(ctx context.Context) error { return nil }

type memoryCollection struct {
	mem     *Memory
	docs    []bson.Raw
	indexes []Index
}

func (c *memoryCollection) FindOne(ctx context.Context, q Query) (bson.Raw, error) {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	if i := c.first(q); i >= 0 {
		return clone(c.docs[i]), nil
	}
	return nil, ErrNotFound
}

func (c *memoryCollection) Find(ctx context.Context, q Query, opts FindOptions) ([]bson.Raw, error) {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()

	var matched []bson.Raw
	for _, doc := range c.docs {
		if matches(doc, q) {
			matched = append(matched, doc)
		}
	}
	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, s := range opts.Sort {
				cmp := compareValues(matched[i].Lookup(s.Field), matched[j].Lookup(s.Field))
				if cmp == 0 {
					continue
				}
				if s.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	out := make([]bson.Raw, len(matched))
	for i, doc := range matched {
		out[i] = clone(doc)
	}
	return out, nil
}

func (c *memoryCollection) Count(ctx context.Context, q Query) (int64, error) {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	var n int64
	for _, doc := range c.docs {
		if matches(doc, q) {
			n++
		}
	}
	return n, nil
}

func (c *memoryCollection) Insert(ctx context.Context, doc bson.Raw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := keyOf(doc); err != nil {
		return err
	}
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	if err := c.checkUnique(doc, -1); err != nil {
		return err
	}
	c.docs = append(c.docs, clone(doc))
	return nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, q Query, set bson.M) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()

	i := c.first(q)
	if i < 0 {
		return nil, ErrNotFound
	}
	updated, err := applySet(c.docs[i], set)
	if err != nil {
		return nil, err
	}
	if err := c.checkUnique(updated, i); err != nil {
		return nil, err
	}
	c.docs[i] = updated
	return clone(updated), nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, q Query) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	i := c.first(q)
	if i < 0 {
		return false, nil
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return true, nil
}

func (c *memoryCollection) EnsureIndexes(ctx context.Context, indexes []Index) error {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	for _, idx := range indexes {
		replaced := false
		for i, existing := range c.indexes {
			if existing.Name == idx.Name {
				c.indexes[i] = idx
				replaced = true
			}
		}
		if !replaced {
			c.indexes = append(c.indexes, idx)
		}
	}
	return nil
}

func (c *memoryCollection) first(q Query) int {
	for i, doc := range c.docs {
		if matches(doc, q) {
			return i
		}
	}
	return -1
}

// checkUnique reports ErrDuplicateKey when doc collides with any stored
// document other than the one at position self. _id is always unique.
func (c *memoryCollection) checkUnique(doc bson.Raw, self int) error {
	indexes := append([]Index{{Name: "_id_", Fields: []string{"_id"}, Unique: true}}, c.indexes...)
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		key, ok := indexKey(doc, idx)
		if !ok {
			continue
		}
		for i, other := range c.docs {
			if i == self {
				continue
			}
			if otherKey, ok := indexKey(other, idx); ok && otherKey == key {
				return fmt.Errorf("%w: index %s", ErrDuplicateKey, idx.Name)
			}
		}
	}
	return nil
}

// indexKey renders the indexed values of doc. Sparse indexes skip documents
// that carry none of the indexed fields.
func indexKey(doc bson.Raw, idx Index) (string, bool) {
	var b strings.Builder
	present := 0
	for _, field := range idx.Fields {
		v, err := doc.LookupErr(field)
		if err != nil {
			b.WriteString("null|")
			continue
		}
		present++
		if f, ok := numeric(v); ok {
			fmt.Fprintf(&b, "n:%v|", f)
			continue
		}
		fmt.Fprintf(&b, "%d:%s|", v.Type, hex.EncodeToString(v.Value))
	}
	if idx.Sparse && present == 0 {
		return "", false
	}
	return b.String(), true
}

func matches(doc bson.Raw, q Query) bool {
	for _, f := range q.All {
		if !fieldEquals(doc, f) {
			return false
		}
	}
	if len(q.Any) == 0 {
		return true
	}
	for _, f := range q.Any {
		if fieldEquals(doc, f) {
			return true
		}
	}
	return false
}

func fieldEquals(doc bson.Raw, f Filter) bool {
	got, err := doc.LookupErr(f.Field)
	if err != nil {
		return f.Value == nil
	}
	t, data, err := bson.MarshalValue(f.Value)
	if err != nil {
		return false
	}
	want := bson.RawValue{Type: t, Value: data}
	if a, ok := numeric(got); ok {
		if b, ok := numeric(want); ok {
			return a == b
		}
		return false
	}
	return got.Type == want.Type && bytes.Equal(got.Value, want.Value)
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		f := v.Double()
		if math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func compareValues(a, b bson.RawValue) int {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if sa, ok := a.StringValueOK(); ok {
		if sb, ok := b.StringValueOK(); ok {
			return strings.Compare(sa, sb)
		}
	}
	if da, ok := a.DateTimeOK(); ok {
		if db, ok := b.DateTimeOK(); ok {
			switch {
			case da < db:
				return -1
			case da > db:
				return 1
			}
			return 0
		}
	}
	return bytes.Compare(a.Value, b.Value)
}

// applySet returns doc with the top-level fields of set replaced or added.
func applySet(doc bson.Raw, set bson.M) (bson.Raw, error) {
	var d bson.D
	if err := bson.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		if k == "_id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		replaced := false
		for i := range d {
			if d[i].Key == k {
				d[i].Value = set[k]
				replaced = true
				break
			}
		}
		if !replaced {
			d = append(d, bson.E{Key: k, Value: set[k]})
		}
	}
	out, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode updated document: %w", err)
	}
	return out, nil
}

func clone(doc bson.Raw) bson.Raw {
	out := make(bson.Raw, len(doc))
	copy(out, doc)
	return out
}
