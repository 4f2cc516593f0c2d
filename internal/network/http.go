package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPOptions configures HTTPClient.
type HTTPOptions struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// RetryMax is the number of retries on connection errors, 429 and 5xx.
	// Zero disables retries.
	RetryMax int
	// RatePerSecond caps outbound requests. Zero means unlimited.
	RatePerSecond float64
	Logger        zerolog.Logger
}

// HTTPClient is the production Client.
type HTTPClient struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds an HTTPClient.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 10 * time.Second
	c.Logger = leveledLogger{log: opts.Logger}
	// Hand the last response back untouched so callers see status and body.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return &HTTPClient{client: c, limiter: limiter}
}

// Post sends req as a JSON POST and returns the status and body.
func (c *HTTPClient) Post(ctx context.Context, req Request) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("Post: rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return Response{}, fmt.Errorf("Post: marshal body: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("Post: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("Post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("Post: read body: %w", err)
	}

	return Response{Code: resp.StatusCode, Body: string(body)}, nil
}

// StandardClient exposes the retrying client as a plain *http.Client for
// libraries that take one.
func (c *HTTPClient) StandardClient() *http.Client {
	return c.client.StandardClient()
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
var _ Client = (*HTTPClient)(nil)
