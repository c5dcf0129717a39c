package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkarlsen/equiploan/internal/adapters/http/middleware"
	"github.com/mkarlsen/equiploan/internal/platform/config"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
)

const (
	// instrumentationName is used for OpenTelemetry tracer and meter.
	instrumentationName = "github.com/mkarlsen/equiploan/internal/adapters/store"

	// httpStatusCategoryDivisor divides status code to get category (2xx, 4xx, 5xx).
	httpStatusCategoryDivisor = 100

	// defaultTimeout is the default request timeout if not configured.
	defaultTimeout = 30 * time.Second
)

// Config configures the document store client.
type Config struct {
	// BaseURL is the store's base URL (e.g., "https://store.example.com").
	BaseURL string

	// Name identifies the store for logging and tracing.
	Name string

	// Timeout is the per-request timeout. The client makes exactly one
	// attempt per call; the resilience executor owns retries.
	Timeout time.Duration

	// Transport configures the connection pool.
	Transport config.TransportConfig

	// AuthFunc is an optional function to inject authentication into requests.
	AuthFunc func(*http.Request)

	// Logger is an optional logger. If nil, a default logger is used.
	Logger *slog.Logger
}

// Client is the instrumented single-attempt transport for the document
// store. It provides:
//   - OpenTelemetry tracing and metrics per request
//   - Request/correlation ID propagation
//   - Structured logging
//   - RemoteError decoding for non-2xx responses
type Client struct {
	http     *http.Client
	baseURL  string
	name     string
	authFunc func(*http.Request)
	logger   *slog.Logger

	tracer trace.Tracer

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New creates a new document store client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.Name == "" {
		return nil, errors.New("store name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "store.Client"),
		slog.String("store", cfg.Name),
	)

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"store.request.duration",
		metric.WithDescription("Duration of document store requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"store.request.total",
		metric.WithDescription("Total number of document store requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Transport.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		},
	}

	return &Client{
		http:            httpClient,
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		name:            cfg.Name,
		authFunc:        cfg.AuthFunc,
		logger:          logger,
		tracer:          otel.Tracer(instrumentationName),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// Do executes one HTTP request against the store. On non-2xx responses the
// returned error wraps a *RemoteError carrying the store's error code.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	startTime := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("store", c.name),
		slog.String("method", method),
		slog.String("path", path),
	)

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	c.injectHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("STORE %s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.recordMetrics(ctx, method, 0, time.Since(startTime), "error")
		logger.Warn("store request failed", slog.Any("error", err))

		return nil, fmt.Errorf("store %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.recordMetrics(ctx, method, resp.StatusCode, time.Since(startTime), "error")

		return nil, fmt.Errorf("store %s %s: reading response: %w", method, path, err)
	}

	duration := time.Since(startTime)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	statusCategory := fmt.Sprintf("%dxx", resp.StatusCode/httpStatusCategoryDivisor)
	c.recordMetrics(ctx, method, resp.StatusCode, duration, statusCategory)

	if resp.StatusCode >= http.StatusBadRequest {
		rerr := decodeRemoteError(resp.StatusCode, payload)
		span.SetStatus(codes.Error, rerr.Error())
		logger.Debug("store request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("code", rerr.Code),
			slog.Duration("duration", duration),
		)

		return nil, fmt.Errorf("store %s %s: %w", method, path, rerr)
	}

	logger.Debug("store request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return payload, nil
}

// Get performs a GET request and decodes the JSON response into target.
func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	payload, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return decode[T](payload)
}

// Post performs a POST request and decodes the JSON response into target.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	payload, err := c.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	return decode[T](payload)
}

// Put performs a PUT request, discarding any response body.
func (c *Client) Put(ctx context.Context, path string, body any) error {
	_, err := c.Do(ctx, http.MethodPut, path, body)
	return err
}

// Patch performs a PATCH request, discarding any response body.
func (c *Client) Patch(ctx context.Context, path string, body any) error {
	_, err := c.Do(ctx, http.MethodPatch, path, body)
	return err
}

// Delete performs a DELETE request, discarding any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil)
	return err
}

// Name returns the health check name for this store.
// Implements ports.HealthChecker.
func (c *Client) Name() string {
	return c.name
}

// Check verifies connectivity to the store.
// Implements ports.HealthChecker.
func (c *Client) Check(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// injectHeaders adds request ID, correlation ID, and auth to the request.
func (c *Client) injectHeaders(ctx context.Context, req *http.Request) {
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}

	if c.authFunc != nil {
		c.authFunc(req)
	}
}

// buildURL constructs the full URL from base URL and path.
func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func (c *Client) recordMetrics(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.name),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func decode[T any](payload []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// queryString builds an encoded query string from non-empty values.
func queryString(values map[string]string) string {
	q := url.Values{}
	for key, value := range values {
		if value != "" {
			q.Set(key, value)
		}
	}

	if len(q) == 0 {
		return ""
	}

	return "?" + q.Encode()
}
