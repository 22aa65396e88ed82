package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"social-autopost-platform/internal/config"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/internal/telemetry"
	"social-autopost-platform/services"
)

// ErrMissingID means the Graph API answered without an object id.
var ErrMissingID = errors.New("graph api response has no id")

// APIError is the Graph API error envelope.
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
	Status    int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

type graphResponse struct {
	ID    string    `json:"id"`
	Error *APIError `json:"error"`
}

// GraphClient implements the two-phase Instagram content publishing flow.
type GraphClient struct {
	baseURL        string
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker
	createAttempts int
	backoff        time.Duration
}

func NewGraphClient(cfg *config.Config, metrics *telemetry.Metrics) *GraphClient {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newGraphClient(strings.TrimRight(cfg.GraphAPIBase, "/")+"/"+cfg.GraphAPIVersion, httpClient, metrics)
}

func newGraphClient(baseURL string, httpClient *http.Client, metrics *telemetry.Metrics) *GraphClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "InstagramGraphAPI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// API level rejections (bad token, bad media) say nothing about availability.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil || errors.Is(err, ErrMissingID)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &GraphClient{
		baseURL:        baseURL,
		httpClient:     httpClient,
		breaker:        breaker,
		createAttempts: 3,
		backoff:        2 * time.Second,
	}
}

// CreateContainer registers the image and caption as a media container.
// Creating a container publishes nothing, so transport failures are retried.
func (gc *GraphClient) CreateContainer(ctx context.Context, creds services.PublishCredentials, imageURL, caption string) (string, error) {
	form := url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {creds.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/media", gc.baseURL, url.PathEscape(creds.BusinessID))

	var lastErr error
	for attempt := 1; attempt <= gc.createAttempts; attempt++ {
		id, err := gc.post(ctx, endpoint, form)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !transient(err) || attempt == gc.createAttempts {
			break
		}
		wait := gc.backoff << (attempt - 1)
		logger.Warn("Container creation failed, retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// PublishContainer makes a container visible. It is attempted exactly once
// since a lost response may still have published the post.
func (gc *GraphClient) PublishContainer(ctx context.Context, creds services.PublishCredentials, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {creds.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/media_publish", gc.baseURL, url.PathEscape(creds.BusinessID))
	return gc.post(ctx, endpoint, form)
}

func (gc *GraphClient) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	result, err := gc.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := gc.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		var gr graphResponse
		if err := json.Unmarshal(body, &gr); err != nil {
			return nil, fmt.Errorf("decode graph response (status %d): %w", resp.StatusCode, err)
		}
		if gr.Error != nil {
			gr.Error.Status = resp.StatusCode
			return nil, gr.Error
		}
		if gr.ID == "" {
			return nil, fmt.Errorf("%w (status %d)", ErrMissingID, resp.StatusCode)
		}
		return gr.ID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func transient(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, ErrMissingID) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Code == 2
	}
	return true
}
