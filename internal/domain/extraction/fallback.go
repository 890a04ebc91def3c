package extraction

import (
	"encoding/json"

	"github.com/SrinivasaPrasadGade/med-x/pkg/fhirmodels"
)

// Sample returns the canned demo result for kind, served when no model
// credential is configured. Each call returns a fresh value the caller may
// modify. Unknown kinds yield nil.
func Sample(kind Kind) Result {
	switch kind {
	case KindNoteAnalysis:
		return sampleClinicalSummary()
	case KindPrescriptionScan:
		return samplePrescription()
	case KindInteractionCheck:
		return sampleInteractionReport()
	case KindCoaching:
		return sampleCoachingPlan()
	}
	return nil
}

func sampleClinicalSummary() *ClinicalSummary {
	return &ClinicalSummary{
		ClinicalSummary: "Patient presented with typical symptoms of hypertension and Type 2 Diabetes. " +
			"Plan involves continuing current medication regimen with Lisinopril and Metformin, " +
			"indicating a chronic management strategy.",
		ExtractedEntities: ExtractedEntities{
			Conditions: []Condition{
				{ClinicalText: "Hypertension", ICD10: "I10", Confidence: 98, Severity: "Moderate"},
				{ClinicalText: "Type 2 Diabetes", ICD10: "E11.9", Confidence: 95, Severity: "Chronic"},
			},
			Medications: []MedicationEntity{
				{DrugName: "Lisinopril", Dosage: "10mg", Frequency: "Daily", Confidence: 99},
				{DrugName: "Metformin", Dosage: "500mg", Frequency: "Twice Daily", Confidence: 97},
			},
		},
		AdherenceInsights: AdherenceInsights{
			ComplexityScore:    3,
			BarriersIdentified: []string{"Multiple daily doses", "Complex schedule"},
		},
		FHIRResources: fhirmodels.Bundle{
			ResourceType: fhirmodels.ResourceTypeBundle,
			Type:         fhirmodels.BundleTypeCollection,
			Entry: []fhirmodels.BundleEntry{
				{Resource: json.RawMessage(`{"code":{"text":"Hypertension"},"resourceType":"Condition"}`)},
				{Resource: json.RawMessage(`{"medication":{"text":"Lisinopril"},"resourceType":"MedicationRequest"}`)},
			},
		},
	}
}

func samplePrescription() *Prescription {
	return &Prescription{
		Medications: []PrescribedMedication{
			{Name: "Amoxicillin", Dosage: "500mg", Frequency: "Every 8 hours", Duration: "7 days"},
			{Name: "Ibuprofen", Dosage: "400mg", Frequency: "As needed", Duration: "5 days"},
		},
		RawText: "DEMO MODE: Amoxicillin 500mg - 1 tab TID x 7d. Ibuprofen 400mg PRN pain.",
	}
}

func sampleInteractionReport() *InteractionReport {
	return &InteractionReport{
		Interactions: []Interaction{
			{
				DrugA:          "Aspirin",
				DrugB:          "Warfarin",
				Severity:       "High",
				Mechanism:      "Increased risk of bleeding due to combined anticoagulant/antiplatelet effects.",
				Recommendation: "Avoid combination or closely monitor INR and signs of bleeding.",
			},
		},
		Warnings: []string{"Check patient history for gastric ulcers."},
	}
}

func sampleCoachingPlan() *CoachingPlan {
	return &CoachingPlan{
		CoachingMessages: []CoachingMessage{
			{
				Medication: "Lisinopril",
				Message:    "Best taken in the morning to keep blood pressure stable all day.",
				Importance: "high",
				Timing:     "Morning",
			},
			{
				Medication: "Metformin",
				Message:    "Take with meals to reduce stomach sensitivity.",
				Importance: "moderate",
				Timing:     "With Dinner",
			},
		},
	}
}
