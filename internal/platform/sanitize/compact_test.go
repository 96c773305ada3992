package sanitize

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

type compactInner struct {
	Label *string  `bson:"label"`
	Cost  *float64 `bson:"cost"`
}

type compactRecord struct {
	Name    string         `bson:"name"`
	Phone   *string        `bson:"phone"`
	Website *string        `bson:"website,omitempty"`
	Inner   *compactInner  `bson:"inner"`
	Items   []compactInner `bson:"items"`
}

func TestCompact_PrunesNil(t *testing.T) {
	label := "x"
	rec := compactRecord{
		Name:  "Happy Paws",
		Inner: &compactInner{Label: &label},
		Items: []compactInner{{Label: &label}},
	}

	doc, err := Compact(rec)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}

	if _, ok := doc["phone"]; ok {
		t.Error("expected nil phone to be pruned")
	}
	if _, ok := doc["website"]; ok {
		t.Error("expected omitted website to stay absent")
	}
	if doc["name"] != "Happy Paws" {
		t.Errorf("expected name, got %v", doc["name"])
	}

	inner, ok := doc["inner"].(bson.M)
	if !ok {
		t.Fatalf("expected nested document, got %T", doc["inner"])
	}
	if _, ok := inner["cost"]; ok {
		t.Error("expected nested nil to be pruned")
	}
	if inner["label"] != "x" {
		t.Errorf("expected nested label, got %v", inner["label"])
	}

	items, ok := doc["items"].(bson.A)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item, got %v", doc["items"])
	}
	if _, ok := items[0].(bson.M)["cost"]; ok {
		t.Error("expected nil inside array element to be pruned")
	}
}

func TestCompact_NeverIntroducesNulls(t *testing.T) {
	doc, err := Compact(&compactRecord{Name: "partial"})
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	for k, v := range doc {
		if v == nil {
			t.Errorf("field %q carries an explicit null", k)
		}
	}
	if _, ok := doc["items"]; ok {
		t.Error("expected nil slice to be pruned")
	}
}
