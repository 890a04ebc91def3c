package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-flash-latest"

	maxResponseBytes = 8 << 20
)

// GeminiConfig configures the Gemini generateContent adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// RequestsPerMinute caps outbound calls; zero disables the budget.
	RequestsPerMinute int
	Burst             int

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// GeminiClient implements Invoker against the Gemini REST API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	budget  *rate.Limiter
	logger  zerolog.Logger
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Per-call deadlines come from the context.
		httpClient = &http.Client{}
	}

	var budget *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		budget = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
	}

	return &GeminiClient{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		baseURL: base,
		http:    httpClient,
		budget:  budget,
		logger:  cfg.Logger.With().Str("component", "gemini").Logger(),
	}
}

func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) Model() string { return c.model }

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Invoke sends one generateContent request. The call budget is consulted
// first: if no slot frees up before ctx's deadline the call fails with
// KindQuotaExceeded without reaching the network.
func (c *GeminiClient) Invoke(ctx context.Context, p Prompt) (string, error) {
	if !c.Configured() {
		return "", ErrNoCredentials
	}

	if err := c.awaitBudget(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	text, status, err := c.generate(ctx, p)
	recordRequest(ctx, c.model, status, time.Since(start), err)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("kind", string(KindOf(err))).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("generateContent failed")
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) awaitBudget(ctx context.Context) error {
	if c.budget == nil {
		return nil
	}
	start := time.Now()
	err := c.budget.Wait(ctx)
	recordBudgetWait(ctx, c.model, time.Since(start))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return newError(KindUpstreamFailure, 0, ctxErr)
	}
	// Wait refuses when the next token lands after the deadline.
	return newError(KindQuotaExceeded, 0, fmt.Errorf("call budget exhausted: %w", err))
}

func (c *GeminiClient) generate(ctx context.Context, p Prompt) (string, int, error) {
	parts := []geminiPart{{Text: p.Instruction}}
	if p.HasAttachment() {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MIMEType: p.Attachment.MIMEType,
			Data:     p.Attachment.Data,
		}})
	}
	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, newError(KindUpstreamFailure, 0, fmt.Errorf("encode request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", 0, newError(KindUpstreamFailure, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, newError(KindUpstreamFailure, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", resp.StatusCode, newError(KindUpstreamFailure, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, classify(resp.StatusCode, raw, p.HasAttachment())
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", resp.StatusCode, newError(KindUpstreamFailure, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		reason := "no candidates"
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + parsed.PromptFeedback.BlockReason
		}
		return "", resp.StatusCode, newError(KindUpstreamFailure, resp.StatusCode, errors.New(reason))
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), resp.StatusCode, nil
}

// classify maps a non-2xx response to a Kind using the HTTP status and the
// backend's status field.
func classify(status int, body []byte, hasAttachment bool) *Error {
	var apiErr geminiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	apiStatus := apiErr.Error.Status

	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := errors.New(msg)

	switch {
	case status == http.StatusTooManyRequests || apiStatus == "RESOURCE_EXHAUSTED":
		return newError(KindQuotaExceeded, status, cause)
	case hasAttachment && (status == http.StatusBadRequest || apiStatus == "INVALID_ARGUMENT"):
		return newError(KindInvalidInput, status, cause)
	default:
		return newError(KindUpstreamFailure, status, cause)
	}
}
