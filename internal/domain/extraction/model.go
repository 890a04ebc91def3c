package extraction

import (
	"strings"

	"github.com/SrinivasaPrasadGade/med-x/pkg/fhirmodels"
)

// Kind identifies a request type and its output schema.
type Kind string

const (
	KindNoteAnalysis     Kind = "note_analysis"
	KindPrescriptionScan Kind = "prescription_scan"
	KindInteractionCheck Kind = "interaction_check"
	KindCoaching         Kind = "coaching"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindNoteAnalysis, KindPrescriptionScan, KindInteractionCheck, KindCoaching}

// Request is one of NoteAnalysisRequest, PrescriptionScanRequest,
// InteractionCheckRequest, or CoachingRequest. Pointers to them are accepted
// and dereferenced.
type Request interface {
	Kind() Kind
	validate() error
}

// concrete returns req as one of the four value types.
func concrete(req Request) (Request, error) {
	switch r := req.(type) {
	case NoteAnalysisRequest, PrescriptionScanRequest, InteractionCheckRequest, CoachingRequest:
		return r, nil
	case *NoteAnalysisRequest:
		if r != nil {
			return *r, nil
		}
	case *PrescriptionScanRequest:
		if r != nil {
			return *r, nil
		}
	case *InteractionCheckRequest:
		if r != nil {
			return *r, nil
		}
	case *CoachingRequest:
		if r != nil {
			return *r, nil
		}
	case nil:
	default:
		return nil, invalidRequestf("unsupported request type %T", req)
	}
	return nil, invalidRequest("request is required")
}

// NoteAnalysisRequest asks for entity extraction from a free-text note.
type NoteAnalysisRequest struct {
	PatientID string `json:"patient_id"`
	NoteText  string `json:"note_text"`
	NoteDate  string `json:"note_date,omitempty"`
}

func (NoteAnalysisRequest) Kind() Kind { return KindNoteAnalysis }

func (r NoteAnalysisRequest) validate() error {
	if strings.TrimSpace(r.NoteText) == "" {
		return invalidRequest("note_text is required")
	}
	return nil
}

// PrescriptionScanRequest carries a prescription image.
type PrescriptionScanRequest struct {
	Image    []byte
	MIMEType string
}

func (PrescriptionScanRequest) Kind() Kind { return KindPrescriptionScan }

func (r PrescriptionScanRequest) validate() error {
	if len(r.Image) == 0 {
		return invalidRequest("image is required")
	}
	if strings.TrimSpace(r.MIMEType) == "" {
		return invalidRequest("image content type is required")
	}
	return nil
}

// InteractionCheckRequest lists medications to check pairwise.
type InteractionCheckRequest struct {
	Medications []string `json:"medications"`
}

func (InteractionCheckRequest) Kind() Kind { return KindInteractionCheck }

func (r InteractionCheckRequest) validate() error {
	return validateMedications(r.Medications)
}

// CoachingRequest lists medications to produce adherence coaching for.
type CoachingRequest struct {
	Medications []string `json:"medications"`
}

func (CoachingRequest) Kind() Kind { return KindCoaching }

func (r CoachingRequest) validate() error {
	return validateMedications(r.Medications)
}

func validateMedications(names []string) error {
	if len(names) == 0 {
		return invalidRequest("medications must not be empty")
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return invalidRequestf("medications[%d] is blank", i)
		}
	}
	return nil
}

// Result is one of *ClinicalSummary, *Prescription, *InteractionReport, or
// *CoachingPlan.
type Result interface {
	Kind() Kind
}

// ClinicalSummary is the NoteAnalysis result.
type ClinicalSummary struct {
	ClinicalSummary   string            `json:"clinical_summary"`
	ExtractedEntities ExtractedEntities `json:"extracted_entities"`
	AdherenceInsights AdherenceInsights `json:"adherence_insights"`
	FHIRResources     fhirmodels.Bundle `json:"fhir_resources"`
}

func (*ClinicalSummary) Kind() Kind { return KindNoteAnalysis }

type ExtractedEntities struct {
	Conditions  []Condition        `json:"conditions"`
	Medications []MedicationEntity `json:"medications"`
}

// Condition severity is one of Mild, Moderate, Severe, Chronic.
type Condition struct {
	ClinicalText string  `json:"clinical_text"`
	ICD10        string  `json:"icd_10"`
	Confidence   float64 `json:"confidence"`
	Severity     string  `json:"severity"`
}

type MedicationEntity struct {
	DrugName   string  `json:"drug_name"`
	Dosage     string  `json:"dosage"`
	Frequency  string  `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

type AdherenceInsights struct {
	ComplexityScore    int      `json:"complexity_score"`
	BarriersIdentified []string `json:"barriers_identified"`
}

// Prescription is the PrescriptionScan result.
type Prescription struct {
	Medications []PrescribedMedication `json:"medications"`
	RawText     string                 `json:"raw_text"`
}

func (*Prescription) Kind() Kind { return KindPrescriptionScan }

type PrescribedMedication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// InteractionReport is the InteractionCheck result. An empty Interactions
// slice means no known interaction.
type InteractionReport struct {
	Interactions []Interaction `json:"interactions"`
	Warnings     []string      `json:"warnings"`
}

func (*InteractionReport) Kind() Kind { return KindInteractionCheck }

// Interaction severity is one of High, Moderate, Low.
type Interaction struct {
	DrugA          string `json:"drug_a"`
	DrugB          string `json:"drug_b"`
	Severity       string `json:"severity"`
	Mechanism      string `json:"mechanism"`
	Recommendation string `json:"recommendation"`
}

// CoachingPlan is the Coaching result.
type CoachingPlan struct {
	CoachingMessages []CoachingMessage `json:"coaching_messages"`
}

func (*CoachingPlan) Kind() Kind { return KindCoaching }

// CoachingMessage importance is one of high, moderate, low.
type CoachingMessage struct {
	Medication string `json:"medication"`
	Message    string `json:"message"`
	Importance string `json:"importance"`
	Timing     string `json:"timing"`
}
