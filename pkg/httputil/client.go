// Package httputil provides the shared HTTP client and a request wrapper that
// turns every call into an explicit Response value instead of a raw *http.Response.
package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/easyengine/ee-dash/pkg/telemetry"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 4 << 20

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
)

// DefaultClient returns a shared HTTP client with pooled connections.
func DefaultClient() *http.Client {
	defaultClientOnce.Do(func() {
		defaultClient = newClient(30 * time.Second)
	})
	return defaultClient
}

// NewClientWithTimeout creates a new HTTP client with the specified timeout.
// The client shares the default transport for connection reuse.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: DefaultClient().Transport,
	}
}

func newClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = 10
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.ForceAttemptHTTP2 = true
	transport.ResponseHeaderTimeout = 30 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Request describes a single HTTP call.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// Response is the outcome of a call that reached the server.
// Success is true for 2xx status codes.
type Response struct {
	StatusCode int
	Body       []byte
	Success    bool
}

// Do performs req with client. A non-nil error means the request never
// produced a response (transport failure, timeout, cancelled context);
// HTTP-level failures are reported through Response.Success instead.
func Do(ctx context.Context, client *http.Client, req Request) (*Response, error) {
	if client == nil {
		client = DefaultClient()
	}

	ctx, span := telemetry.TraceHTTP(ctx, req.Method, req.URL)
	defer span.End()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if !out.Success {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return out, nil
}
