package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/SrinivasaPrasadGade/med-x/pkg/fhirmodels"
)

const fence = "```"

// Parse turns raw model text into the typed result for kind. It fails with
// *MalformedResponseError when the text is not JSON and *SchemaMismatchError
// when the JSON does not fit the kind's schema. Unknown fields are ignored.
func Parse(raw string, kind Kind) (Result, error) {
	schema, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}

	payload := unfence(raw)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &MalformedResponseError{Raw: raw, Err: errors.New("unexpected data after JSON value")}
	}

	if err := schema.Validate(tree); err != nil {
		return nil, &SchemaMismatchError{Kind: kind, Detail: describeViolation(err)}
	}

	res := newResult(kind)
	if res == nil {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	canonical, err := json.Marshal(integralNumbers(tree))
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if err := json.Unmarshal(canonical, res); err != nil {
		return nil, &SchemaMismatchError{Kind: kind, Detail: describeDecodeError(err)}
	}
	normalize(res)
	return res, nil
}

// unfence returns the JSON payload inside raw. A ```json fence (marker
// matched case-insensitively) wins: the text between it and the next fence,
// or the end of input when unterminated. Failing that, a bare leading fence
// is stripped. Otherwise the trimmed text is returned.
func unfence(raw string) string {
	if i := indexJSONFence(raw); i >= 0 {
		body := raw[i+len(fence)+len("json"):]
		if j := strings.Index(body, fence); j >= 0 {
			body = body[:j]
		}
		return strings.TrimSpace(body)
	}

	t := strings.TrimSpace(raw)
	if !strings.HasPrefix(t, fence) {
		return t
	}
	// Drop the opening fence line, which may carry a language tag.
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = t[len(fence):]
	}
	if j := strings.LastIndex(t, fence); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

func indexJSONFence(s string) int {
	off := 0
	for {
		i := strings.Index(s[off:], fence)
		if i < 0 {
			return -1
		}
		i += off
		tag := i + len(fence)
		if tag+4 <= len(s) && strings.EqualFold(s[tag:tag+4], "json") {
			return i
		}
		off = tag
	}
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// integralNumbers rewrites numbers with an integral value, such as 3.0 or
// 1e2, in plain integer form. The schema already counts them as integers.
func integralNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = integralNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = integralNumbers(e)
		}
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			return t
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
			return t
		}
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return v
}

// describeDecodeError reports a materialization failure by JSON field path.
func describeDecodeError(err error) string {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		path := "/" + strings.ReplaceAll(ute.Field, ".", "/")
		return fmt.Sprintf("%s: expected %s, but got %s", path, ute.Type.Kind(), ute.Value)
	}
	return "response does not match the expected structure"
}

func newResult(kind Kind) Result {
	switch kind {
	case KindNoteAnalysis:
		return &ClinicalSummary{}
	case KindPrescriptionScan:
		return &Prescription{}
	case KindInteractionCheck:
		return &InteractionReport{}
	case KindCoaching:
		return &CoachingPlan{}
	}
	return nil
}

// normalize replaces absent arrays with empty ones so results always
// serialize as [] rather than null.
func normalize(r Result) {
	switch v := r.(type) {
	case *ClinicalSummary:
		if v.ExtractedEntities.Conditions == nil {
			v.ExtractedEntities.Conditions = []Condition{}
		}
		if v.ExtractedEntities.Medications == nil {
			v.ExtractedEntities.Medications = []MedicationEntity{}
		}
		if v.AdherenceInsights.BarriersIdentified == nil {
			v.AdherenceInsights.BarriersIdentified = []string{}
		}
		if v.FHIRResources.Entry == nil {
			v.FHIRResources.Entry = []fhirmodels.BundleEntry{}
		}
	case *Prescription:
		if v.Medications == nil {
			v.Medications = []PrescribedMedication{}
		}
	case *InteractionReport:
		if v.Interactions == nil {
			v.Interactions = []Interaction{}
		}
		if v.Warnings == nil {
			v.Warnings = []string{}
		}
	case *CoachingPlan:
		if v.CoachingMessages == nil {
			v.CoachingMessages = []CoachingMessage{}
		}
	}
}
