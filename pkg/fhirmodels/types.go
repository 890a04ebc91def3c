package fhirmodels

import "encoding/json"

// Resource types that appear in generated bundles.
const (
	ResourceTypeBundle            = "Bundle"
	ResourceTypeCondition         = "Condition"
	ResourceTypeMedicationRequest = "MedicationRequest"
	ResourceTypePatient           = "Patient"
)

// BundleType codes per FHIR R4.
const (
	BundleTypeCollection  = "collection"
	BundleTypeSearchset   = "searchset"
	BundleTypeTransaction = "transaction"
)

// Bundle is a minimal FHIR Bundle. Entry resources are kept verbatim.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	Resource json.RawMessage `json:"resource"`
}

// NewCollection returns an empty collection Bundle.
func NewCollection() Bundle {
	return Bundle{ResourceType: ResourceTypeBundle, Type: BundleTypeCollection, Entry: []BundleEntry{}}
}

// IsCollection reports whether b is a collection Bundle.
func (b Bundle) IsCollection() bool {
	return b.ResourceType == ResourceTypeBundle && b.Type == BundleTypeCollection
}

// EntryResourceType returns the resourceType of entry i, or "" if the entry
// is out of range or carries none.
func (b Bundle) EntryResourceType(i int) string {
	if i < 0 || i >= len(b.Entry) {
		return ""
	}
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(b.Entry[i].Resource, &head); err != nil {
		return ""
	}
	return head.ResourceType
}
