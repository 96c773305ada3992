// Package identifier resolves caller-supplied ids into store lookups. A
// record is addressable either by its storage key (a 24-hex ObjectID) or by
// the external id it was asserted with; Parse decides which, once, at the
// API boundary.
package identifier

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/store"
)

// Store field names shared by every collection.
const (
	FieldStorageKey = "_id"
	FieldExternalID = "fhirId"
)

var (
	storageKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	externalPattern   = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
)

// Kind is the lookup strategy an ID carries.
type Kind int

const (
	StorageKey Kind = iota + 1
	External
)

func (k Kind) String() string {
	switch k {
	case StorageKey:
		return "storage-key"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// ID is a parsed identifier. The zero value is not valid; use Parse.
type ID struct {
	kind Kind
	raw  string
	key  primitive.ObjectID
}

// Parse classifies s. Every string maps to exactly one Kind: the 24-hex shape
// is a storage key, anything else is an external id.
func Parse(s string) ID {
	if storageKeyPattern.MatchString(s) {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return ID{kind: StorageKey, raw: s, key: oid}
		}
	}
	return ID{kind: External, raw: s}
}

// ParseValid is Parse plus Validate.
func ParseValid(field, s string) (ID, error) {
	if err := Validate(field, s); err != nil {
		return ID{}, err
	}
	return Parse(s), nil
}

// Validate accepts the storage-key shape or the external id pattern
// (1-64 letters, digits, hyphens or dots).
func Validate(field, s string) error {
	if storageKeyPattern.MatchString(s) || externalPattern.MatchString(s) {
		return nil
	}
	return apperr.Validation(field, "invalid identifier %q", s)
}

// FromKey wraps an existing storage key.
func FromKey(key primitive.ObjectID) ID {
	return ID{kind: StorageKey, raw: key.Hex(), key: key}
}

func (id ID) Kind() Kind { return id.kind }
func (id ID) String() string { return id.raw }
func (id ID) IsZero() bool { return id.kind == 0 }
func (id ID) StorageKey() primitive.ObjectID { return id.key }

// Query returns the store lookup for id.
func (id ID) Query() store.Query {
	if id.kind == StorageKey {
		return store.Where(FieldStorageKey, id.key)
	}
	return store.Where(FieldExternalID, id.raw)
}

// ResponseID is the id callers see: the external id when one was assigned,
// else the storage key's hex form.
func ResponseID(key primitive.ObjectID, externalID string) string {
	if externalID != "" {
		return externalID
	}
	if key.IsZero() {
		return ""
	}
	return key.Hex()
}

// Resolve picks the identifier for a write that may carry one in the path
// and one in the body. Both present and different is a validation error.
func Resolve(pathID, bodyID *ID) (*ID, error) {
	if pathID != nil && bodyID != nil && pathID.raw != bodyID.raw {
		return nil, apperr.Validation("id", "resource id %q does not match %q", bodyID.raw, pathID.raw)
	}
	if pathID != nil {
		return pathID, nil
	}
	return bodyID, nil
}
