// Package httpclient performs one logical HTTP call with per-attempt
// timeouts, sequential retries and exponential backoff. Progress is
// published through a metrics.Reporter.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsgonest/arkgen/internal/metrics"
)

// Reporter counter and gauge names.
const (
	CounterRequests  = "requests"
	CounterRetries   = "retries"
	CounterErrors    = "errors"
	CounterTimeouts  = "timeouts"
	CounterSuccesses = "successes"

	GaugeInflight   = "inflight"
	GaugeStatus     = "status"
	GaugeDurationMS = "duration_ms"
)

// RequestIDHeader carries one id per logical call, shared by its retries.
const RequestIDHeader = "X-Request-Id"

// Config describes the call.
type Config struct {
	BaseURL string
	Method  string // defaults to GET
	Headers map[string]string
	Body    []byte
	// Timeout bounds each attempt. Zero means no timeout.
	Timeout time.Duration
	// Retries is the number of retries after the first attempt.
	Retries int
	// Backoff is the delay before the first retry; it doubles for every
	// following retry up to MaxBackoff.
	Backoff time.Duration
}

// MaxBackoff caps the doubled retry delay. A Backoff above it is used as is.
const MaxBackoff = time.Minute

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithReporter publishes progress to r instead of a private reporter.
func WithReporter(r *metrics.Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

// Client issues calls described by Config. It is safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	logger   *zap.Logger
	reporter *metrics.Reporter
	inflight atomic.Int64
}

// New creates a client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.reporter == nil {
		c.reporter = metrics.NewReporter()
	}
	return c
}

// Reporter returns the reporter the client publishes to.
func (c *Client) Reporter() *metrics.Reporter {
	return c.reporter
}

// RawResponse is the successful response of a call.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
	Attempts   int
}

// Response is a lazily started call. The request is sent on the first
// call to Raw, Decode or Data and runs exactly once; every consumer sees
// the same result. A Response that is never consumed holds no resources.
type Response struct {
	client *Client
	url    string
	parent context.Context

	mu       sync.Mutex
	cancel   context.CancelFunc // set once the call starts
	canceled bool

	once sync.Once
	done chan struct{}
	raw  *RawResponse
	err  error
}

// Do prepares a call to path, resolved against the base URL. ctx bounds
// the whole call including retries.
func (c *Client) Do(ctx context.Context, path string) *Response {
	return &Response{
		client: c,
		url:    resolveURL(c.cfg.BaseURL, path),
		parent: ctx,
		done:   make(chan struct{}),
	}
}

// Cancel stops the call. No further retries happen and consumers get
// ErrCanceled unless the call already finished.
func (r *Response) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = true
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Response) start() {
	r.mu.Lock()
	ctx, cancel := context.WithCancel(r.parent)
	r.cancel = cancel
	if r.canceled {
		cancel()
	}
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		defer cancel()
		r.raw, r.err = r.client.run(ctx, r.url)
	}()
}

// Raw waits for the call and returns the raw response. ctx only bounds
// this consumer's wait.
func (r *Response) Raw(ctx context.Context) (*RawResponse, error) {
	r.once.Do(r.start)
	select {
	case <-r.done:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(ctx context.Context, v any) error {
	raw, err := r.Raw(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Data returns the JSON body as generic values. An empty body is nil.
func (r *Response) Data(ctx context.Context) (any, error) {
	raw, err := r.Raw(ctx)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw.Body)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw.Body, &v); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return v, nil
}

func resolveURL(base, path string) string {
	switch {
	case path == "":
		return base
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"), base == "":
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// run performs the attempts sequentially.
func (c *Client) run(ctx context.Context, url string) (*RawResponse, error) {
	requestID := uuid.NewString()
	log := c.logger.With(zap.String("url", url), zap.String("request_id", requestID))

	if ctx.Err() != nil {
		return nil, c.canceled(log)
	}
	c.reporter.SetStage(metrics.StageRequesting)

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(c.cfg.Backoff, attempt-2)
			c.reporter.Apply(metrics.Delta{
				Stage:    metrics.StageRetry,
				Counters: map[string]int64{CounterRetries: 1},
			})
			log.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			if !sleep(ctx, delay) {
				return nil, c.canceled(log)
			}
			c.reporter.SetStage(metrics.StageRequesting)
		}

		raw, err := c.attempt(ctx, url, requestID)
		if err == nil {
			raw.Attempts = attempt
			c.reporter.Apply(metrics.Delta{
				Stage:    metrics.StageComplete,
				Counters: map[string]int64{CounterSuccesses: 1},
			})
			log.Debug("request complete", zap.Int("status", raw.StatusCode), zap.Int("attempts", attempt))
			return raw, nil
		}
		if errors.Is(err, ErrCanceled) {
			return nil, c.canceled(log)
		}

		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			c.reporter.Apply(metrics.Delta{
				Stage:    metrics.StageTimeout,
				Counters: map[string]int64{CounterErrors: 1, CounterTimeouts: 1},
			})
			log.Warn("request timed out", zap.Duration("timeout", timeout.Timeout))
			return nil, err
		}

		c.reporter.Incr(CounterErrors, 1)
		if attempt > c.cfg.Retries {
			c.reporter.SetStage(metrics.StageError)
			log.Warn("request failed", zap.Int("attempts", attempt), zap.Error(err))
			return nil, err
		}
		log.Warn("request attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
}

func (c *Client) canceled(log *zap.Logger) error {
	c.reporter.SetStage(metrics.StageError)
	log.Debug("request canceled")
	return ErrCanceled
}

var errAttemptTimeout = errors.New("attempt timeout")

// attempt sends one request, racing it against the configured timeout.
func (c *Client) attempt(ctx context.Context, url, requestID string) (*RawResponse, error) {
	actx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeoutCause(ctx, c.cfg.Timeout, errAttemptTimeout)
		defer cancel()
	}

	var body io.Reader
	if c.cfg.Body != nil {
		body = bytes.NewReader(c.cfg.Body)
	}
	req, err := http.NewRequestWithContext(actx, c.cfg.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	c.reporter.Apply(metrics.Delta{
		Counters: map[string]int64{CounterRequests: 1},
		Gauges:   map[string]float64{GaugeInflight: float64(c.inflight.Add(1))},
	})
	defer func() {
		c.reporter.Apply(metrics.Delta{Gauges: map[string]float64{
			GaugeInflight:   float64(c.inflight.Add(-1)),
			GaugeDurationMS: float64(time.Since(start).Milliseconds()),
		}})
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, actx, err)
	}
	c.reporter.SetGauge(GaugeStatus, float64(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

func (c *Client) classify(ctx, actx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return ErrCanceled
	case context.Cause(actx) == errAttemptTimeout:
		return &TimeoutError{Timeout: c.cfg.Timeout}
	default:
		return &NetworkError{Err: err}
	}
}

// backoffDelay is base doubled retry times, capped at MaxBackoff.
func backoffDelay(base time.Duration, retry int) time.Duration {
	if base <= 0 || base >= MaxBackoff {
		return max(base, 0)
	}
	d := base
	for i := 0; i < retry && d < MaxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxBackoff)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
