package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
)

var (
	ErrEmptyResponse    = errors.New("gemini returned no text")
	ErrModelUnavailable = errors.New("gemini unavailable: circuit breaker open")
)

// generateFunc performs one model call and reports the text and tokens used.
type generateFunc func(ctx context.Context, prompt string) (string, int, error)

// GeminiClient generates captions with Gemini. Calls are rate limited,
// guarded by a circuit breaker and retried a bounded number of times.
type GeminiClient struct {
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	client      *genai.Client
	metrics     *telemetry.Metrics
	maxAttempts int
	backoff     time.Duration
	generate    generateFunc
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	gc := newGeminiClient(cfg.GeminiModel, cfg.AIRateRPM, cfg.AIMaxAttempts, metrics, nil)
	gc.client = client
	gc.generate = gc.callModel
	return gc, nil
}

func newGeminiClient(model string, rpm, maxAttempts int, metrics *telemetry.Metrics, generate generateFunc) *GeminiClient {
	if rpm <= 0 {
		rpm = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	// RPM limit with some buffer
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), burst)

	return &GeminiClient{
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		backoff:     2 * time.Second,
		generate:    generate,
	}
}

// Generate returns the model's text for prompt.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", gc.model))

	var lastErr error
	for attempt := 1; attempt <= gc.maxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("gemini.attempt", attempt))

		if err := gc.rateLimiter.Wait(ctx); err != nil {
			span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
			return "", err
		}

		result, err := gc.breaker.Execute(func() (interface{}, error) {
			text, tokens, err := gc.generate(ctx, prompt)
			if err != nil {
				return nil, err
			}
			gc.metrics.RecordTokensUsed(int64(tokens), gc.model)
			span.SetAttributes(attribute.Int("gemini.actual_tokens", tokens))
			return text, nil
		})
		if err == nil {
			span.SetAttributes(attribute.Bool("gemini.success", true))
			return result.(string), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		span.SetAttributes(attribute.Bool("gemini.error", true), attribute.String("gemini.error_message", err.Error()))

		lastErr = err
		if !retryable(err) || attempt == gc.maxAttempts {
			break
		}

		wait := gc.backoff << (attempt - 1)
		logger.Warn("Gemini call failed, retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func (gc *GeminiClient) callModel(ctx context.Context, prompt string) (string, int, error) {
	model := gc.client.GenerativeModel(gc.model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(2048)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", 0, err
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrEmptyResponse
	}
	return text, extractTokenUsage(resp, text), nil
}

// retryable reports whether another attempt could succeed. Blocked and
// empty responses are deterministic for a given prompt.
func retryable(err error) bool {
	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse, text string) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	// Average is ~4 characters per token for Gemini
	estimated := len(text) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

// Unconfigured stands in for the model when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrModelUnavailable)
}
