package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, rpm int) (*GeminiClient, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewGeminiClient(GeminiConfig{
		APIKey:            "test-key",
		Model:             "gemini-test",
		BaseURL:           srv.URL,
		RequestsPerMinute: rpm,
		Burst:             1,
		Logger:            zerolog.Nop(),
	})
	return c, &hits
}

func writeCandidate(w http.ResponseWriter, parts ...string) {
	type part struct {
		Text string `json:"text"`
	}
	ps := make([]part, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, part{Text: p})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": ps}}},
	})
}

func writeAPIError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": "backend said no", "status": status},
	})
}

func TestGemini_InvokeSuccess(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		contents := body["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Len(t, parts, 1)
		assert.Equal(t, "list drugs", parts[0].(map[string]any)["text"])

		writeCandidate(w, `{"interactions":`, `[]}`)
	}, 0)

	out, err := c.Invoke(context.Background(), Prompt{Instruction: "list drugs"})
	require.NoError(t, err)
	assert.Equal(t, `{"interactions":[]}`, out)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestGemini_SendsAttachmentInline(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body geminiRequest
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body.Contents[0].Parts, 2)
		inline := body.Contents[0].Parts[1].InlineData
		require.NotNil(t, inline)
		assert.Equal(t, "image/png", inline.MIMEType)
		assert.Equal(t, img, inline.Data)
		assert.Contains(t, string(raw), base64.StdEncoding.EncodeToString(img))

		writeCandidate(w, `{}`)
	}, 0)

	_, err := c.Invoke(context.Background(), Prompt{
		Instruction: "read this",
		Attachment:  &Blob{MIMEType: "image/png", Data: img},
	})
	require.NoError(t, err)
}

func TestGemini_ClassifiesFailures(t *testing.T) {
	img := &Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}

	tests := []struct {
		name   string
		code   int
		status string
		prompt Prompt
		want   Kind
	}{
		{"429 is quota", http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", Prompt{Instruction: "x"}, KindQuotaExceeded},
		{"resource exhausted on other status", http.StatusForbidden, "RESOURCE_EXHAUSTED", Prompt{Instruction: "x"}, KindQuotaExceeded},
		{"400 with image is invalid input", http.StatusBadRequest, "INVALID_ARGUMENT", Prompt{Instruction: "x", Attachment: img}, KindInvalidInput},
		{"400 without image is upstream", http.StatusBadRequest, "INVALID_ARGUMENT", Prompt{Instruction: "x"}, KindUpstreamFailure},
		{"500 is upstream", http.StatusInternalServerError, "INTERNAL", Prompt{Instruction: "x"}, KindUpstreamFailure},
		{"403 is upstream", http.StatusForbidden, "PERMISSION_DENIED", Prompt{Instruction: "x"}, KindUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.code, tt.status)
			}, 0)

			_, err := c.Invoke(context.Background(), tt.prompt)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))

			var ge *Error
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tt.code, ge.StatusCode)
		})
	}
}

func TestGemini_NoCandidatesIsUpstreamFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}, 0)

	_, err := c.Invoke(context.Background(), Prompt{Instruction: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamFailure))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGemini_DeadlineIsUpstreamFailure(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 0)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, Prompt{Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, KindUpstreamFailure, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGemini_NoCredentials(t *testing.T) {
	c := NewGeminiClient(GeminiConfig{APIKey: "   "})
	assert.False(t, c.Configured())

	_, err := c.Invoke(context.Background(), Prompt{Instruction: "x"})
	assert.Equal(t, KindNoCredentials, KindOf(err))
}

func TestGemini_BudgetExhaustedIsQuota(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCandidate(w, `{}`)
	}, 1)

	_, err := c.Invoke(context.Background(), Prompt{Instruction: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Invoke(ctx, Prompt{Instruction: "second"})
	require.Error(t, err)
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(hits), "budget refusal must not reach the backend")
}

func TestGemini_Defaults(t *testing.T) {
	c := NewGeminiClient(GeminiConfig{APIKey: "k"})
	assert.Equal(t, DefaultGeminiModel, c.Model())
	assert.Equal(t, DefaultGeminiBaseURL, c.baseURL)
	assert.Nil(t, c.budget)
}

func TestUnconfigured(t *testing.T) {
	var inv Invoker = Unconfigured{}
	assert.False(t, inv.Configured())
	_, err := inv.Invoke(context.Background(), Prompt{Instruction: "x"})
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestError_IsMatchesKind(t *testing.T) {
	err := newError(KindQuotaExceeded, 429, errors.New("slow down"))
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.False(t, errors.Is(err, ErrUpstreamFailure))
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
