package practitionerrole

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

func roleJSON(practitioner, organization, code string) string {
	return `{"resourceType":"PractitionerRole",` +
		`"practitioner":{"reference":"` + practitioner + `"},` +
		`"organization":{"reference":"` + organization + `"},` +
		`"code":[{"coding":[{"code":"` + code + `","display":"Vet"}]}]}`
}

func TestFromRequest(t *testing.T) {
	a, err := FromRequest(parse(t, roleJSON("Practitioner/p1", "Organization/o1", "veterinarian")))
	if err != nil {
		t.Fatal(err)
	}
	if *a.Practitioner != "Practitioner/p1" || *a.Organization != "Organization/o1" {
		t.Errorf("references must be kept as sent: %v %v", *a.Practitioner, *a.Organization)
	}
	if *a.RoleCode != "veterinarian" || *a.RoleDisplay != "Vet" || a.RoleSystem != nil {
		t.Errorf("unexpected role %+v", a)
	}
	if a.Active != nil {
		t.Error("expected active unset when absent")
	}
}

func TestFromRequest_TextFallback(t *testing.T) {
	a, err := FromRequest(parse(t, `{"resourceType":"PractitionerRole","code":[{"text":"groomer"}],"active":false}`))
	if err != nil {
		t.Fatal(err)
	}
	if a.RoleCode == nil || *a.RoleCode != "groomer" || *a.RoleDisplay != "groomer" {
		t.Errorf("expected text fallback, got %+v", a)
	}
	if a.Active == nil || *a.Active {
		t.Error("expected explicit active=false")
	}
}

func TestFromRequest_WrongType(t *testing.T) {
	_, err := FromRequest(parse(t, `{"resourceType":"Practitioner"}`))
	if apperr.KindOf(err) != apperr.KindInvalidPayload {
		t.Errorf("expected invalid payload, got %v", err)
	}
}

func TestToResponse_DefaultSystem(t *testing.T) {
	out := ToResponse(&PractitionerRole{
		FHIRID:       "pr-1",
		Practitioner: "Practitioner/p1",
		Organization: "o1",
		RoleCode:     "nurse",
		Active:       true,
	})
	raw, _ := json.Marshal(out)
	var back fhir.Object
	json.Unmarshal(raw, &back)

	coding, _ := fhir.FirstCoding(back, "code")
	if coding == nil || coding.System != fhir.SystemPractitionerRole || coding.Code != "nurse" {
		t.Errorf("unexpected coding %+v", coding)
	}
	if ref := fhir.ReferenceString(back, "organization"); ref == nil || *ref != "o1" {
		t.Errorf("unexpected organization %v", ref)
	}
	if back["id"] != "pr-1" || back["active"] != true {
		t.Errorf("unexpected resource %v", back)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"ok", roleJSON("Practitioner/p1", "Organization/o1", "doctor"), ""},
		{"missing practitioner", `{"resourceType":"PractitionerRole","organization":{"reference":"o"},"code":[{"text":"doctor"}]}`, "practitioner"},
		{"missing organization", `{"resourceType":"PractitionerRole","practitioner":{"reference":"p"},"code":[{"text":"doctor"}]}`, "organization"},
		{"missing code", `{"resourceType":"PractitionerRole","practitioner":{"reference":"p"},"organization":{"reference":"o"}}`, "roleCode"},
		{"unknown code", roleJSON("p", "o", "wizard"), "roleCode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := FromRequest(parse(t, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Sanitize(a)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if apperr.FieldOf(err) != tt.field {
				t.Errorf("expected failure on %s, got %v", tt.field, err)
			}
		})
	}
}
