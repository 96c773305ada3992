package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bundle is the searchset envelope returned by every GET /fhir/{Type}.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// SearchBundleParams describes the page a searchset bundle holds. QueryStr is
// the already-encoded filter query, without paging parameters.
type SearchBundleParams struct {
	BaseURL  string
	QueryStr string
	Count    int
	Offset   int
	Total    int
}

// NewSearchBundle wraps one page of search results. Total counts every match,
// not just this page.
func NewSearchBundle(resources []Object, params SearchBundleParams) *Bundle {
	now := time.Now().UTC()
	total := params.Total
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			continue
		}
		entries = append(entries, BundleEntry{
			FullURL:  fullURL(r),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		})
	}
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Link:         buildPaginationLinks(params),
		Entry:        entries,
	}
}

func fullURL(r Object) string {
	rt, _ := GetString(r, "resourceType")
	id, _ := GetString(r, "id")
	if rt == "" || id == "" {
		return ""
	}
	return FormatReference(rt, id)
}

// buildPaginationLinks returns self, then next when matches remain, then
// previous when this is not the first page.
func buildPaginationLinks(params SearchBundleParams) []BundleLink {
	page := func(offset int) string {
		var b strings.Builder
		b.WriteString(params.BaseURL)
		b.WriteByte('?')
		if params.QueryStr != "" {
			b.WriteString(params.QueryStr)
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "_count=%d&_offset=%d", params.Count, offset)
		return b.String()
	}

	links := []BundleLink{{Relation: "self", URL: page(params.Offset)}}
	if next := params.Offset + params.Count; next < params.Total {
		links = append(links, BundleLink{Relation: "next", URL: page(next)})
	}
	if params.Offset > 0 {
		links = append(links, BundleLink{Relation: "previous", URL: page(max(params.Offset-params.Count, 0))})
	}
	return links
}

// CapabilityStatement represents the FHIR CapabilityStatement (metadata).
type CapabilityStatement struct {
	ResourceType string   `json:"resourceType"`
	Status       string   `json:"status"`
	Date         string   `json:"date"`
	Kind         string   `json:"kind"`
	FHIRVersion  string   `json:"fhirVersion"`
	Format       []string `json:"format"`
	Rest         []CSRest `json:"rest"`
}

type CSRest struct {
	Mode     string       `json:"mode"`
	Resource []CSResource `json:"resource"`
}

type CSResource struct {
	Type        string          `json:"type"`
	Interaction []CSInteraction `json:"interaction"`
	SearchParam []CSSearchParam `json:"searchParam,omitempty"`
}

type CSInteraction struct {
	Code string `json:"code"`
}

type CSSearchParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewCapabilityStatement creates the server's capability statement.
func NewCapabilityStatement(resources []CSResource) *CapabilityStatement {
	return &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format("2006-01-02"),
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"json"},
		Rest:         []CSRest{{Mode: "server", Resource: resources}},
	}
}

// ResourceCapability creates a CSResource with the given interactions.
func ResourceCapability(resourceType string, interactions []string, searchParams []CSSearchParam) CSResource {
	res := CSResource{Type: resourceType, SearchParam: searchParams}
	for _, code := range interactions {
		res.Interaction = append(res.Interaction, CSInteraction{Code: code})
	}
	return res
}

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// SplitReference splits "Kind/value" at the first separator. ok is false when
// the input has no separator or either side is empty.
func SplitReference(ref string) (kind, value string, ok bool) {
	kind, value, found := strings.Cut(ref, "/")
	if !found || kind == "" || value == "" {
		return "", "", false
	}
	return kind, value, true
}
