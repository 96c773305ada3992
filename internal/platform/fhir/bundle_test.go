package fhir

import (
	"encoding/json"
	"testing"
)

func TestNewSearchBundle(t *testing.T) {
	resources := []Object{
		{"id": "1", "resourceType": "Patient"},
		{"id": "2", "resourceType": "Patient"},
	}

	bundle := NewSearchBundle(resources, SearchBundleParams{BaseURL: "/fhir/Patient", Count: 2, Total: 10})

	if bundle.ResourceType != "Bundle" {
		t.Errorf("expected resourceType Bundle, got %s", bundle.ResourceType)
	}
	if bundle.Type != "searchset" {
		t.Errorf("expected type searchset, got %s", bundle.Type)
	}
	if *bundle.Total != 10 {
		t.Errorf("expected total 10, got %d", *bundle.Total)
	}
	if len(bundle.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bundle.Entry))
	}
	if bundle.Entry[0].Search == nil || bundle.Entry[0].Search.Mode != "match" {
		t.Error("expected search mode 'match'")
	}
	if bundle.Entry[1].FullURL != "Patient/2" {
		t.Errorf("expected fullUrl 'Patient/2', got %q", bundle.Entry[1].FullURL)
	}
	if bundle.Timestamp == nil {
		t.Error("expected timestamp to be set")
	}
}

func TestNewSearchBundle_ResourceSerialization(t *testing.T) {
	resources := []Object{{"resourceType": "Patient", "id": "test-1", "active": true}}

	bundle := NewSearchBundle(resources, SearchBundleParams{BaseURL: "/fhir/Patient", Count: 20, Total: 1})

	var decoded map[string]interface{}
	if err := json.Unmarshal(bundle.Entry[0].Resource, &decoded); err != nil {
		t.Fatalf("failed to decode entry resource: %v", err)
	}
	if decoded["active"] != true {
		t.Errorf("expected active=true, got %v", decoded["active"])
	}
}

func TestBuildPaginationLinks(t *testing.T) {
	tests := []struct {
		name      string
		params    SearchBundleParams
		relations []string
		last      string
	}{
		{
			name:      "first page with more",
			params:    SearchBundleParams{BaseURL: "/fhir/Organization", Count: 10, Offset: 0, Total: 25},
			relations: []string{"self", "next"},
			last:      "/fhir/Organization?_count=10&_offset=10",
		},
		{
			name:      "middle page",
			params:    SearchBundleParams{BaseURL: "/fhir/Organization", QueryStr: "name=vet", Count: 10, Offset: 10, Total: 25},
			relations: []string{"self", "next", "previous"},
			last:      "/fhir/Organization?name=vet&_count=10&_offset=0",
		},
		{
			name:      "last page",
			params:    SearchBundleParams{BaseURL: "/fhir/Organization", Count: 10, Offset: 20, Total: 25},
			relations: []string{"self", "previous"},
			last:      "/fhir/Organization?_count=10&_offset=10",
		},
		{
			name:      "single page",
			params:    SearchBundleParams{BaseURL: "/fhir/Organization", Count: 10, Offset: 0, Total: 3},
			relations: []string{"self"},
			last:      "/fhir/Organization?_count=10&_offset=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := buildPaginationLinks(tt.params)
			if len(links) != len(tt.relations) {
				t.Fatalf("expected %d links, got %d: %+v", len(tt.relations), len(links), links)
			}
			for i, rel := range tt.relations {
				if links[i].Relation != rel {
					t.Errorf("link %d: expected relation %q, got %q", i, rel, links[i].Relation)
				}
			}
			if got := links[len(links)-1].URL; got != tt.last {
				t.Errorf("expected last link %q, got %q", tt.last, got)
			}
		})
	}
}

func TestSplitReference(t *testing.T) {
	tests := []struct {
		in    string
		kind  string
		value string
		ok    bool
	}{
		{"Practitioner/abc", "Practitioner", "abc", true},
		{"Organization/a/b", "Organization", "a/b", true},
		{"abc", "", "", false},
		{"/abc", "", "", false},
		{"Practitioner/", "", "", false},
	}
	for _, tt := range tests {
		kind, value, ok := SplitReference(tt.in)
		if kind != tt.kind || value != tt.value || ok != tt.ok {
			t.Errorf("SplitReference(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, kind, value, ok, tt.kind, tt.value, tt.ok)
		}
	}
}

func TestNewCapabilityStatement(t *testing.T) {
	cs := NewCapabilityStatement([]CSResource{
		ResourceCapability("Organization", []string{"read", "create"}, nil),
	})
	if cs.ResourceType != "CapabilityStatement" {
		t.Errorf("expected CapabilityStatement, got %s", cs.ResourceType)
	}
	if len(cs.Rest) != 1 || len(cs.Rest[0].Resource) != 1 {
		t.Fatalf("expected one rest resource, got %+v", cs.Rest)
	}
	if n := len(cs.Rest[0].Resource[0].Interaction); n != 2 {
		t.Errorf("expected 2 interactions, got %d", n)
	}
}
