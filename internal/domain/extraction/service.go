package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
	"github.com/SrinivasaPrasadGade/med-x/internal/platform/genai"
)

// Audit statuses written by the service.
const (
	StatusSuccess = "Success"
	StatusDemo    = "Demo"
	statusFailed  = "Failed: "
)

const auditWriteTimeout = 5 * time.Second

var auditActions = map[Kind]string{
	KindNoteAnalysis:     "Clinical Note Analysis",
	KindPrescriptionScan: "Prescription OCR Scan",
	KindInteractionCheck: "Drug Interaction Check",
	KindCoaching:         "Medication Coaching",
}

// AuditAction returns the audit action label for kind.
func AuditAction(kind Kind) string {
	return auditActions[kind]
}

// Service runs the render, invoke, parse pipeline and records one audit
// entry per accepted request.
type Service struct {
	invoker genai.Invoker
	sink    audit.Sink
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService wires the pipeline. A positive timeout bounds each model call.
func NewService(invoker genai.Invoker, sink audit.Sink, timeout time.Duration, logger zerolog.Logger) *Service {
	if invoker == nil {
		invoker = genai.Unconfigured{}
	}
	return &Service{
		invoker: invoker,
		sink:    sink,
		timeout: timeout,
		logger:  logger.With().Str("component", "extraction").Logger(),
	}
}

// Handle validates req and produces its structured result. Without a model
// credential it returns the canned sample for the kind. Every other failure
// is returned to the caller: *genai.Error, *MalformedResponseError,
// *SchemaMismatchError, or an error wrapping ErrInvalidRequest. Invalid
// requests are not audited; everything else writes exactly one entry.
func (s *Service) Handle(ctx context.Context, req Request) (Result, error) {
	req, err := concrete(req)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	prompt, err := Render(req)
	if err != nil {
		return nil, err
	}
	kind := req.Kind()
	start := time.Now()

	if !s.invoker.Configured() {
		return s.demo(ctx, kind, start), nil
	}

	raw, err := s.invoke(ctx, prompt)
	if errors.Is(err, genai.ErrNoCredentials) {
		return s.demo(ctx, kind, start), nil
	}

	var res Result
	if err == nil {
		res, err = Parse(raw, kind)
	}
	if err != nil {
		label := failureLabel(err)
		s.record(ctx, kind, statusFailed+label)
		s.logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Str("outcome", label).
			Dur("duration", time.Since(start)).
			Msg("extraction failed")
		return nil, err
	}

	s.record(ctx, kind, StatusSuccess)
	s.logger.Info().
		Str("kind", string(kind)).
		Str("outcome", "success").
		Dur("duration", time.Since(start)).
		Msg("extraction complete")
	return res, nil
}

func (s *Service) invoke(ctx context.Context, p genai.Prompt) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.invoker.Invoke(ctx, p)
	if err != nil && genai.KindOf(err) == "" {
		err = &genai.Error{Kind: genai.KindUpstreamFailure, Err: err}
	}
	return raw, err
}

func (s *Service) demo(ctx context.Context, kind Kind, start time.Time) Result {
	s.record(ctx, kind, StatusDemo)
	s.logger.Info().
		Str("kind", string(kind)).
		Str("outcome", "demo").
		Dur("duration", time.Since(start)).
		Msg("no model credential; served sample result")
	return Sample(kind)
}

// record appends the audit entry on a context detached from the caller so a
// cancelled request still gets its single entry.
func (s *Service) record(ctx context.Context, kind Kind, status string) {
	if s.sink == nil {
		return
	}
	entry := audit.NewEntry(AuditAction(kind), audit.ActorFromContext(ctx), status)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := s.sink.Append(wctx, entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("kind", string(kind)).
			Str("audit_id", entry.ID).
			Msg("audit append failed")
	}
}

func failureLabel(err error) string {
	if k := genai.KindOf(err); k != "" {
		return string(k)
	}
	var mr *MalformedResponseError
	if errors.As(err, &mr) {
		return "malformed_response"
	}
	var sm *SchemaMismatchError
	if errors.As(err, &sm) {
		return "schema_mismatch"
	}
	return "internal"
}

func handleAs[T Result](ctx context.Context, s *Service, req Request) (T, error) {
	var zero T
	res, err := s.Handle(ctx, req)
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T for %s", res, req.Kind())
	}
	return out, nil
}

func (s *Service) AnalyzeNote(ctx context.Context, req NoteAnalysisRequest) (*ClinicalSummary, error) {
	return handleAs[*ClinicalSummary](ctx, s, req)
}

func (s *Service) ScanPrescription(ctx context.Context, req PrescriptionScanRequest) (*Prescription, error) {
	return handleAs[*Prescription](ctx, s, req)
}

func (s *Service) CheckInteractions(ctx context.Context, req InteractionCheckRequest) (*InteractionReport, error) {
	return handleAs[*InteractionReport](ctx, s, req)
}

func (s *Service) GenerateCoaching(ctx context.Context, req CoachingRequest) (*CoachingPlan, error) {
	return handleAs[*CoachingPlan](ctx, s, req)
}

const deIdentifyPrefix = "[DE-IDENTIFIED] "

// DeIdentify masks a note by keeping only its first 50 characters. It makes
// no model call and writes no audit entry.
func DeIdentify(note string) string {
	r := []rune(note)
	if len(r) > 50 {
		r = r[:50]
	}
	return deIdentifyPrefix + string(r) + "..."
}
