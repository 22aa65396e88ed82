package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	PostTransitions     metric.Int64Counter
	JobsDispatched      metric.Int64Counter
	PublishDuration     metric.Float64Histogram
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("social-autopost-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	postTransitions, err := meter.Int64Counter(
		"post.status.transitions",
		metric.WithDescription("Applied post status transitions"),
	)
	if err != nil {
		return nil, err
	}

	jobsDispatched, err := meter.Int64Counter(
		"jobs.dispatched.total",
		metric.WithDescription("Background jobs handed to the queue"),
	)
	if err != nil {
		return nil, err
	}

	publishDuration, err := meter.Float64Histogram(
		"publish.duration",
		metric.WithDescription("Instagram publish duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		PostTransitions:     postTransitions,
		JobsDispatched:      jobsDispatched,
		PublishDuration:     publishDuration,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.PostTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("post.from", from),
		attribute.String("post.to", to),
	))
}

func (m *Metrics) RecordJobDispatched(taskType string, ok bool) {
	if m == nil {
		return
	}
	m.JobsDispatched.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("task.type", taskType),
		attribute.Bool("task.enqueued", ok),
	))
}

func (m *Metrics) RecordPublish(duration float64, status string) {
	if m == nil {
		return
	}
	m.PublishDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.String("publish.status", status),
		attribute.String("service", "instagram"),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
