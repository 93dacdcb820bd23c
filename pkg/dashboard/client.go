// Package dashboard talks to the Dashboard HTTP API. Every call is a JSON
// POST authenticated with the Token header.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/httputil"
	"github.com/easyengine/ee-dash/pkg/resilience"
	"github.com/easyengine/ee-dash/pkg/telemetry"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// ErrMalformedList is returned when a list response has no "message" array.
var ErrMalformedList = errors.New("malformed list response")

// APIError is a response that reached the Dashboard but was not a success.
type APIError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Method, e.StatusCode, utils.TruncateString(e.Body, 500))
}

// Options configures a Client.
type Options struct {
	APIURL       string
	APIKey       string
	Organization string
	Timeout      time.Duration
	Breaker      *resilience.ServiceBreaker
	Output       *formatter.Output
}

// Client is a Dashboard API client scoped to one organization.
type Client struct {
	apiURL       string
	apiKey       string
	organization string
	http         *http.Client
	breaker      *resilience.ServiceBreaker
	out          *formatter.Output
}

// NewClient creates a Client. APIURL must end with "/".
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewDashboardBreaker(5, nil)
	}
	out := opts.Output
	if out == nil {
		out = formatter.New(false, true)
	}

	return &Client{
		apiURL:       opts.APIURL,
		apiKey:       opts.APIKey,
		organization: opts.Organization,
		http:         httputil.NewClientWithTimeout(timeout),
		breaker:      breaker,
		out:          out,
	}
}

// ServerExists reports whether a server with this public IPv4 address is
// registered in the organization. Any failure counts as "does not exist".
func (c *Client) ServerExists(ctx context.Context, ip string) bool {
	ctx, span := telemetry.TraceDashboard(ctx, "server_exists", c.organization)
	defer span.End()

	c.out.Debug("Checking if server with IP %s exists on the Dashboard...", ip)
	found, err := c.listContains(ctx, MethodServerList, "public_ipv4", ip)
	if err != nil {
		span.RecordError(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.out.Log("There are no servers in the org right now. Adding new one...")
			c.out.Debug("%v", err)
		} else {
			c.out.Warning("Error connecting to the Dashboard API to get server list.")
			c.out.Debug("%v", err)
		}
		return false
	}
	return found
}

// SiteExists reports whether a site with this domain is registered in the
// organization. Any failure counts as "does not exist".
func (c *Client) SiteExists(ctx context.Context, domain string) bool {
	ctx, span := telemetry.TraceDashboard(ctx, "site_exists", c.organization)
	defer span.End()

	found, err := c.listContains(ctx, MethodSiteList, "domain", domain)
	if err != nil {
		span.RecordError(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.out.Log("Failed to retrieve site list.")
			c.out.Debug("%v", err)
		} else {
			c.out.Warning("Error connecting to the Dashboard API to get site list: %v", err)
		}
		return false
	}
	return found
}

// CheckAccess fetches the organization's server list and returns the
// error that ServerExists would have swallowed.
func (c *Client) CheckAccess(ctx context.Context) error {
	ctx, span := telemetry.TraceDashboard(ctx, "check_access", c.organization)
	defer span.End()

	if _, err := c.listContains(ctx, MethodServerList, "public_ipv4", ""); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// AddServer creates the server record.
func (c *Client) AddServer(ctx context.Context, server ServerRecord) error {
	ctx, span := telemetry.TraceDashboard(ctx, "add_server", c.organization)
	defer span.End()

	if err := c.create(ctx, MethodAddServer, server); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// AddSite creates the site record.
func (c *Client) AddSite(ctx context.Context, site SiteRecord) error {
	ctx, span := telemetry.TraceDashboard(ctx, "add_site", c.organization)
	defer span.End()

	if err := c.create(ctx, MethodAddSite, site); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *Client) create(ctx context.Context, method string, payload any) error {
	resp, err := c.post(ctx, method, payload)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}

// listContains fetches a list method and scans its "message" array for an
// object whose key field equals value.
func (c *Client) listContains(ctx context.Context, method, key, value string) (bool, error) {
	resp, err := c.post(ctx, method, listRequest{Organization: c.organization})
	if err != nil {
		return false, err
	}
	if !resp.Success {
		return false, &APIError{Method: method, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	items, err := parseList(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%s: %w", method, err)
	}
	for _, item := range items {
		if s, ok := item[key].(string); ok && s == value {
			return true, nil
		}
	}
	return false, nil
}

func parseList(body []byte) ([]map[string]any, error) {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}

	var raw []json.RawMessage
	if len(envelope.Message) == 0 || json.Unmarshal(envelope.Message, &raw) != nil || raw == nil {
		return nil, fmt.Errorf("%w: \"message\" is not an array", ErrMalformedList)
	}

	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		var item map[string]any
		if err := json.Unmarshal(r, &item); err != nil || item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// post sends payload to method. Every call is sent; the breaker only counts
// transport failures, so one site's outage never blocks the next site.
func (c *Client) post(ctx context.Context, method string, payload any) (*httputil.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	headers := map[string]string{
		"Token":        c.apiKey,
		"Content-Type": "application/json",
		"X-Request-ID": uuid.NewString(),
	}
	req := httputil.Request{
		Method:  http.MethodPost,
		URL:     c.apiURL + method,
		Body:    body,
		Headers: headers,
	}

	c.out.Debug("Request URL: %s", req.URL)
	c.out.Debug("Request headers: %s", redactHeaders(headers))
	c.out.Debug("Request data: %s", body)

	if c.breaker.IsOpen() {
		c.out.Debug("Dashboard breaker is %s; sending %s anyway", c.breaker.State(), method)
	}
	resp, err := resilience.Observe(c.breaker, func() (*httputil.Response, error) {
		return httputil.Do(ctx, c.http, req)
	})
	if err != nil {
		return nil, err
	}

	c.out.Debug("Response from Dashboard (%d): %s", resp.StatusCode, utils.TruncateString(string(resp.Body), 2000))
	return resp, nil
}

func redactHeaders(headers map[string]string) string {
	parts := make([]string, 0, len(headers))
	for _, k := range []string{"Content-Type", "Token", "X-Request-ID"} {
		v, ok := headers[k]
		if !ok {
			continue
		}
		if k == "Token" {
			v = "[redacted]"
		}
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}
