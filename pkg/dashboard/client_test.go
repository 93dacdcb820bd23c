package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/resilience"
)

type recordedRequest struct {
	method  string
	headers http.Header
	body    map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(method string, w http.ResponseWriter)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/method/")
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	json.Unmarshal(data, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: method, headers: r.Header.Clone(), body: body})
	f.mu.Unlock()

	f.handler(method, w)
}

func newTestClient(t *testing.T, handler func(method string, w http.ResponseWriter)) (*Client, *fakeAPI, *bytes.Buffer) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	client := NewClient(Options{
		APIURL:       srv.URL + "/api/method/",
		APIKey:       "key:secret",
		Organization: "Acme",
		Timeout:      time.Second,
		Output:       formatter.NewWriter(&buf, true),
	})
	return client, api, &buf
}

func respond(body string) func(string, http.ResponseWriter) {
	return func(_ string, w http.ResponseWriter) {
		w.Write([]byte(body))
	}
}

func TestServerExists(t *testing.T) {
	tests := []struct {
		name string
		body string
		ip   string
		want bool
	}{
		{"present", `{"message":[{"public_ipv4":"198.51.100.1"},{"public_ipv4":"203.0.113.5"}]}`, "203.0.113.5", true},
		{"absent", `{"message":[{"public_ipv4":"198.51.100.1"}]}`, "203.0.113.5", false},
		{"empty", `{"message":[]}`, "203.0.113.5", false},
		{"message is a string", `{"message":"none"}`, "203.0.113.5", false},
		{"no message", `{"data":[]}`, "203.0.113.5", false},
		{"not json", `<html>`, "203.0.113.5", false},
		{"non-object entries", `{"message":["203.0.113.5",{"public_ipv4":"203.0.113.5"}]}`, "203.0.113.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api, _ := newTestClient(t, respond(tt.body))
			if got := client.ServerExists(context.Background(), tt.ip); got != tt.want {
				t.Errorf("ServerExists = %v, want %v", got, tt.want)
			}
			if len(api.requests) != 1 || api.requests[0].method != MethodServerList {
				t.Fatalf("requests = %+v", api.requests)
			}
			if api.requests[0].body["organization"] != "Acme" {
				t.Errorf("body = %v", api.requests[0].body)
			}
		})
	}
}

func TestSiteExists(t *testing.T) {
	client, api, _ := newTestClient(t, respond(`{"message":[{"domain":"example.com","server":"web1.example.com"}]}`))

	if !client.SiteExists(context.Background(), "example.com") {
		t.Error("SiteExists(example.com) = false")
	}
	if client.SiteExists(context.Background(), "other.example.com") {
		t.Error("SiteExists(other.example.com) = true")
	}
	if api.requests[0].method != MethodSiteList {
		t.Errorf("method = %s", api.requests[0].method)
	}
}

func TestExistsFailsOpen(t *testing.T) {
	client, _, buf := newTestClient(t, func(_ string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":[{"public_ipv4":"203.0.113.5","domain":"example.com"}]}`))
	})

	if client.ServerExists(context.Background(), "203.0.113.5") {
		t.Error("ServerExists trusted a non-2xx response")
	}
	if client.SiteExists(context.Background(), "example.com") {
		t.Error("SiteExists trusted a non-2xx response")
	}
	if !strings.Contains(buf.String(), "There are no servers in the org right now") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestExistsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var buf bytes.Buffer
	client := NewClient(Options{
		APIURL:       url + "/api/method/",
		APIKey:       "key:secret",
		Organization: "Acme",
		Output:       formatter.NewWriter(&buf, false),
	})

	if client.ServerExists(context.Background(), "203.0.113.5") {
		t.Error("ServerExists = true with the Dashboard unreachable")
	}
	if !strings.Contains(buf.String(), "Error connecting to the Dashboard API to get server list.") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestRequestHeaders(t *testing.T) {
	client, api, buf := newTestClient(t, respond(`{"message":"ok"}`))

	if err := client.AddServer(context.Background(), ServerRecord{Hostname: "web1.example.com", PublicIPv4: "203.0.113.5", Organization: "Acme"}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	req := api.requests[0]
	if req.method != MethodAddServer {
		t.Errorf("method = %s", req.method)
	}
	if got := req.headers.Get("Token"); got != "key:secret" {
		t.Errorf("Token = %q", got)
	}
	if got := req.headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if req.headers.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if req.body["hostname"] != "web1.example.com" || req.body["public_ipv4"] != "203.0.113.5" || req.body["organization"] != "Acme" {
		t.Errorf("body = %v", req.body)
	}
	if strings.Contains(buf.String(), "key:secret") {
		t.Error("API key written to debug output")
	}
}

func TestAddSite(t *testing.T) {
	client, api, _ := newTestClient(t, respond(`{"message":"ok"}`))

	site := SiteRecord{Domain: "example.com", Server: "web1.example.com", SiteType: "wp", Organization: "Acme", Multisite: 0, PHPVersion: "8.2"}
	if err := client.AddSite(context.Background(), site); err != nil {
		t.Fatalf("AddSite: %v", err)
	}

	body := api.requests[0].body
	if body["domain"] != "example.com" || body["multisite"] != float64(0) || body["php_version"] != "8.2" {
		t.Errorf("body = %v", body)
	}
}

func TestAddSiteAPIError(t *testing.T) {
	client, _, _ := newTestClient(t, func(_ string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusExpectationFailed)
		w.Write([]byte(`{"exc_type":"DuplicateEntryError"}`))
	})

	err := client.AddSite(context.Background(), SiteRecord{Domain: "example.com"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("AddSite() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusExpectationFailed || apiErr.Method != MethodAddSite {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestParseList(t *testing.T) {
	if _, err := parseList([]byte(`{"message":null}`)); !errors.Is(err, ErrMalformedList) {
		t.Errorf("parseList(null) error = %v", err)
	}
	items, err := parseList([]byte(`{"message":[{"domain":"a.com"},1,null]}`))
	if err != nil {
		t.Fatalf("parseList: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %v", items)
	}
}

func TestCheckAccess(t *testing.T) {
	client, _, _ := newTestClient(t, respond(`{"message":[]}`))
	if err := client.CheckAccess(context.Background()); err != nil {
		t.Errorf("CheckAccess: %v", err)
	}

	denied, _, _ := newTestClient(t, func(_ string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var apiErr *APIError
	if err := denied.CheckAccess(context.Background()); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("CheckAccess() error = %v, want 401 APIError", err)
	}
}

func TestCallsContinueWhileDashboardFailing(t *testing.T) {
	var mu sync.Mutex
	dropped := 0
	client, api, _ := newTestClient(t, func(method string, w http.ResponseWriter) {
		mu.Lock()
		drop := dropped < 3
		if drop {
			dropped++
		}
		mu.Unlock()
		if drop {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"message":[]}`))
	})
	client.breaker = resilience.NewDashboardBreaker(2, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := client.AddSite(ctx, SiteRecord{Domain: "down.example.com"}); err == nil {
			t.Fatalf("AddSite #%d succeeded against a dropped connection", i+1)
		}
	}
	if !client.breaker.IsOpen() {
		t.Fatalf("breaker state = %s, want open", client.breaker.State())
	}

	if err := client.AddSite(ctx, SiteRecord{Domain: "up.example.com"}); err != nil {
		t.Fatalf("AddSite after recovery: %v", err)
	}
	if len(api.requests) != 4 {
		t.Errorf("requests = %d, want 4", len(api.requests))
	}
	if last := api.requests[len(api.requests)-1]; last.body["domain"] != "up.example.com" {
		t.Errorf("last request body = %v", last.body)
	}
}
