package parent

import (
	"encoding/json"
	"testing"

	"github.com/vetcare/practice/internal/platform/apperr"
	"github.com/vetcare/practice/internal/platform/fhir"
)

func parse(t *testing.T, body string) fhir.Object {
	t.Helper()
	var o fhir.Object
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return o
}

func reparse(t *testing.T, v interface{}) fhir.Object {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return parse(t, string(raw))
}

const ageURL = "https://fhir.vetcare.dev/StructureDefinition/related-person-age"

const janeJSON = `{
	"resourceType": "RelatedPerson",
	"id": "jane-1",
	"name": [{"given": ["Jane", "Quinn"], "family": "Public"}],
	"telecom": [{"system": "email", "value": "jane@example.com"}, {"system": "phone", "value": "555-0101"}],
	"address": [{"line": ["1 Elm St"], "city": "Springfield", "state": "IL", "postalCode": "62701", "country": "US",
		"extension": [{"url": "http://hl7.org/fhir/StructureDefinition/geolocation", "extension": [
			{"url": "latitude", "valueDecimal": 39.78},
			{"url": "longitude", "valueDecimal": -89.65}
		]}]}],
	"photo": [{"title": "no url"}, {"url": "https://cdn.example/jane.png", "extension": [
		{"url": "https://fhir.vetcare.dev/StructureDefinition/storage-key", "valueString": "blob-123"}
	]}],
	"extension": [{"url": "` + ageURL + `", "valueInteger": 41}]
}`

func TestFromRequest(t *testing.T) {
	a, err := FromRequest(parse(t, janeJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *a.FirstName != "Jane" || *a.LastName != "Public" {
		t.Errorf("unexpected name %s %s", *a.FirstName, *a.LastName)
	}
	if *a.Age != 41 {
		t.Errorf("expected age 41, got %d", *a.Age)
	}
	if *a.PhoneNumber != "555-0101" {
		t.Errorf("expected first phone, got %s", *a.PhoneNumber)
	}
	if *a.ProfileImageURL != "https://cdn.example/jane.png" || *a.ProfileImageKey != "blob-123" {
		t.Errorf("unexpected photo %v %v", a.ProfileImageURL, a.ProfileImageKey)
	}
	if !a.Address.HasCoordinates() || *a.Address.Latitude != 39.78 {
		t.Errorf("unexpected address %+v", a.Address)
	}
}

func TestFromRequest_NameFallback(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantFirst string
		wantLast  *string
	}{
		{"text split", `{"resourceType":"RelatedPerson","name":[{"text":"Jane Q Public"}]}`, "Jane", strPtr("Q Public")},
		{"single word", `{"resourceType":"RelatedPerson","name":[{"text":"  Cher "}]}`, "Cher", nil},
		{"structured wins", `{"resourceType":"RelatedPerson","name":[{"text":"Ignored Text","given":["Ann"]}]}`, "Ann", nil},
		{"family with text", `{"resourceType":"RelatedPerson","name":[{"family":"Public","text":"Jane Q Public"}]}`, "Jane", strPtr("Public")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := FromRequest(parse(t, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if a.FirstName == nil || *a.FirstName != tt.wantFirst {
				t.Errorf("expected first name %q, got %v", tt.wantFirst, a.FirstName)
			}
			if (tt.wantLast == nil) != (a.LastName == nil) || (tt.wantLast != nil && *a.LastName != *tt.wantLast) {
				t.Errorf("expected last name %v, got %v", tt.wantLast, a.LastName)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestFromRequest_Age(t *testing.T) {
	tests := []struct {
		ext  string
		want *int
	}{
		{`{"url":"` + ageURL + `","valueDecimal":41.9}`, intPtr(41)},
		{`{"url":"` + ageURL + `","valueInteger":"41"}`, nil},
		{`{"url":"` + ageURL + `","valueString":"x"}`, nil},
		{`{"url":"` + ageURL + `","valueInteger":1e19}`, nil},
	}
	for _, tt := range tests {
		a, err := FromRequest(parse(t, `{"resourceType":"RelatedPerson","extension":[`+tt.ext+`]}`))
		if err != nil {
			t.Fatal(err)
		}
		if (tt.want == nil) != (a.Age == nil) || (tt.want != nil && *a.Age != *tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.ext, tt.want, a.Age)
		}
	}
}

func intPtr(n int) *int { return &n }

func TestFromRequest_WrongResourceType(t *testing.T) {
	_, err := FromRequest(parse(t, `{"resourceType":"Organization","name":[{"text":"Jane"}]}`))
	if apperr.KindOf(err) != apperr.KindInvalidPayload {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	base := func() Attributes {
		a, err := FromRequest(parse(t, janeJSON))
		if err != nil {
			t.Fatal(err)
		}
		return a
	}
	tests := []struct {
		name   string
		mutate func(*Attributes)
		field  string
	}{
		{"missing first name", func(a *Attributes) { a.FirstName = nil }, "firstName"},
		{"missing age", func(a *Attributes) { a.Age = nil }, "age"},
		{"negative age", func(a *Attributes) { a.Age = intPtr(-1) }, "age"},
		{"missing address", func(a *Attributes) { a.Address = nil }, "address.addressLine"},
		{"address without city", func(a *Attributes) { a.Address.City = "" }, "address.city"},
		{"injection in last name", func(a *Attributes) { a.LastName = strPtr("{$ne: 1}") }, "lastName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(&a)
			_, err := Sanitize(a)
			if got := apperr.FieldOf(err); got != tt.field {
				t.Errorf("expected failure on %q, got %v", tt.field, err)
			}
		})
	}
}

func TestToResponse_RoundTrip(t *testing.T) {
	a, err := FromRequest(parse(t, janeJSON))
	if err != nil {
		t.Fatal(err)
	}
	f, err := Sanitize(a)
	if err != nil {
		t.Fatal(err)
	}
	p := newRecord(f, fixedNow)

	out := reparse(t, ToResponse(p))
	name := fhir.GetFirstObject(out, "name")
	if text, _ := fhir.GetString(name, "text"); text != "Jane Public" {
		t.Errorf("expected text name, got %q", text)
	}

	back, err := FromRequest(out)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Sanitize(back)
	if err != nil {
		t.Fatal(err)
	}
	if again.FirstName != f.FirstName || *again.LastName != *f.LastName || again.Age != f.Age {
		t.Errorf("identity fields changed: %+v", again)
	}
	if *again.Address.Latitude != *f.Address.Latitude || *again.Address.Longitude != *f.Address.Longitude {
		t.Errorf("coordinates changed: %+v", again.Address)
	}
	if *again.ProfileImageKey != "blob-123" || *again.PhoneNumber != "555-0101" {
		t.Errorf("photo or phone changed: %+v", again)
	}
}
