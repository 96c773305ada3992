package identifier

import (
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/store"
)

// ReferenceField binds a reference kind (e.g. "Practitioner") to the store
// field holding references of that kind.
type ReferenceField struct {
	Kind  string
	Field string
}

// ReferenceQuery builds a lookup for a reference-shaped input such as
// "Practitioner/abc" or a bare "abc".
//
// With a recognized kind prefix only the matching field is searched, for both
// the full reference and the bare value. Otherwise every field is searched for
// the input as given and with each kind prefix prepended. Equivalent clauses
// are dropped; clause order follows fields then candidates.
func ReferenceQuery(input string, fields []ReferenceField) store.Query {
	if kind, value, ok := fhir.SplitReference(input); ok {
		for _, f := range fields {
			if f.Kind == kind {
				return anyOf([]ReferenceField{f}, []string{input, value})
			}
		}
	}

	candidates := []string{input}
	for _, f := range fields {
		candidates = append(candidates, f.Kind+"/"+input)
	}
	return anyOf(fields, candidates)
}

func anyOf(fields []ReferenceField, values []string) store.Query {
	var out []store.Filter
	seen := make(map[store.Filter]bool)
	for _, f := range fields {
		for _, v := range values {
			filter := store.Filter{Field: f.Field, Value: v}
			if seen[filter] {
				continue
			}
			seen[filter] = true
			out = append(out, filter)
		}
	}
	return store.Query{Any: out}
}
