package extraction

import (
	"strings"

	"github.com/SrinivasaPrasadGade/med-x/internal/platform/genai"
)

const jsonOnly = "Return the result as valid JSON ONLY, with no commentary, using exactly this structure:\n"

const noteAnalysisSchema = `{
  "clinical_summary": string, a concise professional summary of the patient's condition, diagnosis and plan,
  "extracted_entities": {
    "conditions": [
      {"clinical_text": string, "icd_10": string ICD-10 code, "confidence": number 0-100, "severity": one of "Mild", "Moderate", "Severe", "Chronic"}
    ],
    "medications": [
      {"drug_name": string, "dosage": string, "frequency": string, "confidence": number 0-100}
    ]
  },
  "adherence_insights": {
    "complexity_score": integer,
    "barriers_identified": [string]
  },
  "fhir_resources": {
    "resourceType": "Bundle",
    "type": "collection",
    "entry": [
      {"resource": {"resourceType": one of "Condition", "MedicationRequest", "Patient", ...remaining FHIR fields}}
    ]
  }
}`

const prescriptionSchema = `{
  "medications": [
    {"name": string, "dosage": string, "frequency": string, "duration": string}
  ],
  "raw_text": string, a transcription of the relevant prescription text
}`

const interactionSchema = `{
  "interactions": [
    {"drug_a": string, "drug_b": string, "severity": one of "High", "Moderate", "Low", "mechanism": string, brief scientific reason for the interaction, "recommendation": string, clinical advice for the provider}
  ],
  "warnings": [string], general safety warnings
}`

const coachingSchema = `{
  "coaching_messages": [
    {"medication": string, "message": string, patient-facing adherence advice, "importance": one of "high", "moderate", "low", "timing": string, when to take it}
  ]
}`

// Render builds the model prompt for req. It is pure: equal requests give
// byte-identical prompts. req must already be valid; the only error is an
// unsupported or nil request.
func Render(req Request) (genai.Prompt, error) {
	req, err := concrete(req)
	if err != nil {
		return genai.Prompt{}, err
	}

	var b strings.Builder
	switch r := req.(type) {
	case NoteAnalysisRequest:
		b.WriteString("Analyze this clinical note and extract structured medical data.\n")
		if r.NoteDate != "" {
			b.WriteString("Note date: ")
			b.WriteString(r.NoteDate)
			b.WriteString("\n")
		}
		b.WriteString("Note: ")
		b.WriteString(r.NoteText)
		b.WriteString("\n\n")
		b.WriteString(jsonOnly)
		b.WriteString(noteAnalysisSchema)
		return genai.Prompt{Instruction: b.String()}, nil

	case PrescriptionScanRequest:
		b.WriteString("Analyze the attached prescription image.\n")
		b.WriteString("1. Extract all medications with their dosage, frequency, and duration.\n")
		b.WriteString("2. Provide a raw transcription of the relevant text.\n\n")
		b.WriteString(jsonOnly)
		b.WriteString(prescriptionSchema)
		return genai.Prompt{
			Instruction: b.String(),
			Attachment:  &genai.Blob{MIMEType: r.MIMEType, Data: r.Image},
		}, nil

	case InteractionCheckRequest:
		b.WriteString("Check for drug-drug interactions between these medications: ")
		b.WriteString(strings.Join(r.Medications, ", "))
		b.WriteString(".\n\n")
		b.WriteString(jsonOnly)
		b.WriteString(interactionSchema)
		b.WriteString("\nIf no interactions are found, return \"interactions\": [].")
		return genai.Prompt{Instruction: b.String()}, nil

	case CoachingRequest:
		b.WriteString("Write short medication adherence coaching for a patient taking these medications: ")
		b.WriteString(strings.Join(r.Medications, ", "))
		b.WriteString(".\nGive one message per medication covering how and when to take it.\n\n")
		b.WriteString(jsonOnly)
		b.WriteString(coachingSchema)
		return genai.Prompt{Instruction: b.String()}, nil
	}
	return genai.Prompt{}, invalidRequestf("unsupported request type %T", req)
}
