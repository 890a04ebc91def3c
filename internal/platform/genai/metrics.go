package genai

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type invokerMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	budgetWait      metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	metrics     *invokerMetrics
)

func loadMetrics() *invokerMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/SrinivasaPrasadGade/med-x/genai")

		requestCount, err := meter.Int64Counter(
			"ai.genai.request.count",
			metric.WithDescription("Number of generative model requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.genai.request.duration",
			metric.WithDescription("Generative model request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.genai.request.errors",
			metric.WithDescription("Number of failed generative model requests by kind"),
		)
		if err != nil {
			return
		}
		budgetWait, err := meter.Float64Histogram(
			"ai.genai.budget.wait",
			metric.WithDescription("Time spent waiting for the call budget in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		metrics = &invokerMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			budgetWait:      budgetWait,
		}
	})
	return metrics
}

func recordRequest(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	m := loadMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		attrs = append(attrs, attribute.String("ai.error_kind", string(KindOf(err))))
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordBudgetWait(ctx context.Context, model string, wait time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	m.budgetWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	))
}
