package sanitize

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compact renders v as a store update document with every nil removed, at
// any depth. Omitted fields therefore never overwrite stored values.
func Compact[T any](v T) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return compactMap(doc), nil
}

func compactMap(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		if c, ok := compactValue(v); ok {
			out[k] = c
		}
	}
	return out
}

func compactValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case bson.M:
		return compactMap(x), true
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return compactMap(m), true
	case bson.A:
		out := make(bson.A, 0, len(x))
		for _, item := range x {
			if c, ok := compactValue(item); ok {
				out = append(out, c)
			}
		}
		return out, true
	case primitive.Null, primitive.Undefined:
		return nil, false
	}
	return v, true
}
