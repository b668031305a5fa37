package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"QueryChat/internal/telemetry"
)

// Recorder persists the operational record of each query
type Recorder interface {
	Record(ctx context.Context, ev telemetry.QueryEvent) error
}

// Client posts natural-language queries to the query endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	recorder   Recorder
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds each request; zero leaves requests unbounded
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(c *Client) {
		c.tracer = tracer
		c.meter = meter
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client for endpoint
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("querychat"),
		meter:      otel.Meter("querychat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL queries are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query sends text as {"nl_query": text} and decodes the JSON reply.
// The HTTP status is not treated as a failure on its own.
func (c *Client) Query(ctx context.Context, text string) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "query_request")
	defer span.End()

	start := time.Now()
	ev := telemetry.QueryEvent{StartedAt: start}

	resp, err := c.post(ctx, text)
	ev.Duration = time.Since(start)
	if resp != nil {
		ev.StatusCode = resp.StatusCode
	}

	if err != nil {
		ev.Outcome = telemetry.OutcomeError
		ev.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		c.logger.Error("query failed", "endpoint", c.endpoint, "duration", ev.Duration, "error", err)
	} else {
		ev.Outcome = resp.Outcome()
		span.SetAttributes(
			attribute.Int("http.response.status_code", resp.StatusCode),
			attribute.String("querychat.outcome", ev.Outcome),
		)
		c.logger.Info("query completed", "status", resp.StatusCode, "outcome", ev.Outcome, "duration", ev.Duration)
	}

	c.recordMetrics(ctx, ev)

	if c.recorder != nil {
		if rerr := c.recorder.Record(ctx, ev); rerr != nil {
			c.logger.Warn("failed to record query event", "error", rerr)
		}
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, text string) (*Response, error) {
	jsonData, err := json.Marshal(QueryRequest{NLQuery: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Response{StatusCode: httpResp.StatusCode}, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.logger.Warn("query endpoint returned non-2xx status", "status", httpResp.Status)
	}

	resp, err := ParseResponse(httpResp.StatusCode, body)
	if err != nil {
		return &Response{StatusCode: httpResp.StatusCode}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) recordMetrics(ctx context.Context, ev telemetry.QueryEvent) {
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(ev.Duration.Milliseconds()))
	}

	counter, err := c.meter.Int64Counter(
		"querychat.queries",
		metric.WithDescription("Queries sent, by outcome"),
	)
	if err != nil {
		c.logger.Warn("failed to create counter", "error", err)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", ev.Outcome)))
}
