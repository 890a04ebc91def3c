package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
	"github.com/SrinivasaPrasadGade/med-x/internal/platform/genai"
)

type stubInvoker struct {
	configured bool
	raw        string
	err        error
	block      bool

	mu      sync.Mutex
	calls   int
	prompts []genai.Prompt
	sawDead bool
}

func (s *stubInvoker) Configured() bool { return s.configured }

func (s *stubInvoker) Invoke(ctx context.Context, p genai.Prompt) (string, error) {
	s.mu.Lock()
	s.calls++
	s.prompts = append(s.prompts, p)
	_, s.sawDead = ctx.Deadline()
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", &genai.Error{Kind: genai.KindUpstreamFailure, Err: ctx.Err()}
	}
	return s.raw, s.err
}

func (s *stubInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingSink wraps MemorySink and notes whether any Append saw a
// cancelled context.
type recordingSink struct {
	*audit.MemorySink
	mu            sync.Mutex
	cancelledSeen bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{MemorySink: audit.NewMemorySink(0)}
}

func (r *recordingSink) Append(ctx context.Context, e audit.Entry) error {
	if ctx.Err() != nil {
		r.mu.Lock()
		r.cancelledSeen = true
		r.mu.Unlock()
	}
	return r.MemorySink.Append(ctx, e)
}

func (r *recordingSink) entries(t *testing.T) []audit.Entry {
	t.Helper()
	got, err := r.List(context.Background(), 0)
	require.NoError(t, err)
	return got
}

type brokenSink struct{}

func (brokenSink) Append(context.Context, audit.Entry) error { return errors.New("sink offline") }
func (brokenSink) List(context.Context, int) ([]audit.Entry, error) {
	return nil, errors.New("sink offline")
}

func newTestService(inv genai.Invoker, sink audit.Sink) *Service {
	return NewService(inv, sink, time.Second, zerolog.Nop())
}

func TestService_NoCredentialsServesSample(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestService(genai.Unconfigured{}, sink)

	report, err := svc.CheckInteractions(context.Background(), InteractionCheckRequest{Medications: []string{"Aspirin", "Warfarin"}})
	require.NoError(t, err)
	assert.Equal(t, Sample(KindInteractionCheck), report)
	require.Len(t, report.Interactions, 1)
	assert.Equal(t, "High", report.Interactions[0].Severity)
	assert.Equal(t, "Aspirin", report.Interactions[0].DrugA)
	assert.Equal(t, "Warfarin", report.Interactions[0].DrugB)

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Action, "Interaction")
	assert.Equal(t, StatusDemo, entries[0].Status)
	assert.Equal(t, audit.DefaultActor, entries[0].User)
}

func TestService_NoCredentialsNeverInvokes(t *testing.T) {
	inv := &stubInvoker{configured: false}
	svc := newTestService(inv, newRecordingSink())

	for _, req := range sampleRequests() {
		res, err := svc.Handle(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, req.Kind(), res.Kind())
	}
	assert.Zero(t, inv.callCount())
}

func TestService_PointerRequestsRenderFullPrompt(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, raw: `{"interactions":[],"warnings":[]}`}
	svc := newTestService(inv, sink)

	req := &InteractionCheckRequest{Medications: []string{"Aspirin", "Warfarin"}}
	res, err := svc.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, KindInteractionCheck, res.Kind())

	require.Equal(t, 1, inv.callCount())
	want := mustRender(t, *req)
	assert.Equal(t, want.Instruction, inv.prompts[0].Instruction)
	assert.Contains(t, inv.prompts[0].Instruction, "Aspirin, Warfarin")

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSuccess, entries[0].Status)
}

func TestService_QuotaExceededIsSurfaced(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, err: &genai.Error{Kind: genai.KindQuotaExceeded, StatusCode: 429, Err: errors.New("RESOURCE_EXHAUSTED")}}
	svc := newTestService(inv, sink)

	_, err := svc.CheckInteractions(context.Background(), InteractionCheckRequest{Medications: []string{"Aspirin", "Warfarin"}})
	require.Error(t, err)
	assert.Equal(t, genai.KindQuotaExceeded, genai.KindOf(err))
	assert.True(t, errors.Is(err, genai.ErrQuotaExceeded))

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "Failed: quota_exceeded", entries[0].Status)
	for _, e := range entries {
		assert.NotEqual(t, StatusSuccess, e.Status)
	}
}

func TestService_EmptyInteractionsFromModel(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, raw: "```json\n{\"interactions\":[]}\n```"}
	svc := newTestService(inv, sink)

	report, err := svc.CheckInteractions(context.Background(), InteractionCheckRequest{Medications: []string{"Acetaminophen"}})
	require.NoError(t, err)
	assert.Empty(t, report.Interactions)
	assert.NotNil(t, report.Warnings)
	assert.Empty(t, report.Warnings)

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusSuccess, entries[0].Status)
	assert.Equal(t, "Drug Interaction Check", entries[0].Action)
}

func TestService_Idempotent(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, raw: `{"medications":[{"name":"Ibuprofen","dosage":"400mg","frequency":"PRN","duration":"5 days"}],"raw_text":"Ibuprofen 400mg PRN"}`}
	svc := newTestService(inv, sink)
	req := PrescriptionScanRequest{Image: []byte("fake-png"), MIMEType: "image/png"}

	a, err := svc.ScanPrescription(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.ScanPrescription(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	entries := sink.entries(t)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, entries[0].Action, entries[1].Action)
	assert.Equal(t, entries[0].Status, entries[1].Status)

	require.Len(t, inv.prompts, 2)
	assert.Equal(t, inv.prompts[0], inv.prompts[1])
	assert.Equal(t, []byte("fake-png"), inv.prompts[0].Attachment.Data)
}

func TestService_InvalidRequestNotAudited(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true}
	svc := newTestService(inv, sink)

	cases := []Request{
		InteractionCheckRequest{},
		InteractionCheckRequest{Medications: []string{"Aspirin", " "}},
		CoachingRequest{},
		NoteAnalysisRequest{PatientID: "p-1", NoteText: "   "},
		PrescriptionScanRequest{MIMEType: "image/png"},
		PrescriptionScanRequest{Image: []byte{1}},
		&CoachingRequest{},
		(*NoteAnalysisRequest)(nil),
		nil,
	}
	for _, req := range cases {
		_, err := svc.Handle(context.Background(), req)
		assert.True(t, errors.Is(err, ErrInvalidRequest), "request %#v: got %v", req, err)
	}
	assert.Zero(t, inv.callCount())
	assert.Empty(t, sink.entries(t))
}

func TestService_SchemaMismatchNotMaskedByFallback(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, raw: `{"interactions":[{"drug_a":"Aspirin"}]}`}
	svc := newTestService(inv, sink)

	res, err := svc.CheckInteractions(context.Background(), InteractionCheckRequest{Medications: []string{"Aspirin", "Warfarin"}})
	assert.Nil(t, res)
	var sm *SchemaMismatchError
	require.True(t, errors.As(err, &sm))

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "Failed: schema_mismatch", entries[0].Status)
}

func TestService_MalformedResponse(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, raw: "Sorry, I can only help with medical questions."}
	svc := newTestService(inv, sink)

	_, err := svc.AnalyzeNote(context.Background(), NoteAnalysisRequest{NoteText: "BP stable"})
	var mr *MalformedResponseError
	require.True(t, errors.As(err, &mr))
	assert.Equal(t, inv.raw, mr.Raw)
	assert.Equal(t, "Failed: malformed_response", sink.entries(t)[0].Status)
}

func TestService_UntypedInvokerErrorBecomesUpstream(t *testing.T) {
	inv := &stubInvoker{configured: true, err: errors.New("connection reset")}
	svc := newTestService(inv, newRecordingSink())

	_, err := svc.GenerateCoaching(context.Background(), CoachingRequest{Medications: []string{"Metformin"}})
	assert.Equal(t, genai.KindUpstreamFailure, genai.KindOf(err))
}

func TestService_NoCredentialsFromInvokeFallsBack(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, err: genai.ErrNoCredentials}
	svc := newTestService(inv, sink)

	plan, err := svc.GenerateCoaching(context.Background(), CoachingRequest{Medications: []string{"Metformin"}})
	require.NoError(t, err)
	assert.Equal(t, Sample(KindCoaching), plan)
	assert.Equal(t, StatusDemo, sink.entries(t)[0].Status)
}

func TestService_TimeoutIsUpstreamFailure(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, block: true}
	svc := NewService(inv, sink, 20*time.Millisecond, zerolog.Nop())

	_, err := svc.AnalyzeNote(context.Background(), NoteAnalysisRequest{NoteText: "long note"})
	require.Error(t, err)
	assert.Equal(t, genai.KindUpstreamFailure, genai.KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, inv.sawDead)

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "Failed: upstream_failure", entries[0].Status)
}

func TestService_CancellationWritesSingleEntry(t *testing.T) {
	sink := newRecordingSink()
	inv := &stubInvoker{configured: true, block: true}
	svc := NewService(inv, sink, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.CheckInteractions(ctx, InteractionCheckRequest{Medications: []string{"Aspirin", "Warfarin"}})
		done <- err
	}()

	require.Eventually(t, func() bool { return inv.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not return after cancellation")
	}

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Status, "Failed: "))
	assert.False(t, sink.cancelledSeen, "audit append must not see the caller's cancellation")
}

func TestService_AuditFailureDoesNotFailCall(t *testing.T) {
	svc := newTestService(genai.Unconfigured{}, brokenSink{})

	rx, err := svc.ScanPrescription(context.Background(), PrescriptionScanRequest{Image: []byte{1}, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, Sample(KindPrescriptionScan), rx)
}

func TestService_ActorFromContext(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestService(genai.Unconfigured{}, sink)

	ctx := audit.WithActor(context.Background(), "nurse.jones@clinic.test")
	_, err := svc.AnalyzeNote(ctx, NoteAnalysisRequest{NoteText: "BP stable"})
	require.NoError(t, err)

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "nurse.jones@clinic.test", entries[0].User)
	assert.Equal(t, "Clinical Note Analysis", entries[0].Action)
}

func TestService_ConcurrentCallsEachAudited(t *testing.T) {
	sink := newRecordingSink()
	svc := newTestService(&stubInvoker{configured: true, raw: `{"interactions":[]}`}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.CheckInteractions(context.Background(), InteractionCheckRequest{Medications: []string{"A", "B"}})
		}()
	}
	wg.Wait()
	assert.Len(t, sink.entries(t), 20)
}

func TestAuditAction(t *testing.T) {
	assert.Equal(t, "Prescription OCR Scan", AuditAction(KindPrescriptionScan))
	assert.Equal(t, "Medication Coaching", AuditAction(KindCoaching))
}

func TestDeIdentify(t *testing.T) {
	assert.Equal(t, "[DE-IDENTIFIED] short note...", DeIdentify("short note"))

	long := strings.Repeat("a", 60)
	assert.Equal(t, "[DE-IDENTIFIED] "+strings.Repeat("a", 50)+"...", DeIdentify(long))

	accented := strings.Repeat("é", 55)
	assert.Equal(t, "[DE-IDENTIFIED] "+strings.Repeat("é", 50)+"...", DeIdentify(accented))
}
