package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/easyengine/ee-dash/pkg/httputil"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// DefaultIPServiceURL returns the caller's public IPv4 address as plain text.
const DefaultIPServiceURL = "https://api.ipify.org"

// DefaultIPServiceTimeout bounds the external IP lookup. It is the only
// network call in a run with its own timeout.
const DefaultIPServiceTimeout = 15 * time.Second

// IPService discovers the host's public IPv4 address.
type IPService struct {
	url    string
	client *http.Client
}

// NewIPService creates an IPService. Zero values select the defaults.
func NewIPService(url string, timeout time.Duration) *IPService {
	if url == "" {
		url = DefaultIPServiceURL
	}
	if timeout <= 0 {
		timeout = DefaultIPServiceTimeout
	}
	return &IPService{
		url:    url,
		client: httputil.NewClientWithTimeout(timeout),
	}
}

// PublicIPv4 asks the service for this host's address.
func (s *IPService) PublicIPv4(ctx context.Context) (string, error) {
	resp, err := httputil.Do(ctx, s.client, httputil.Request{Method: http.MethodGet, URL: s.url})
	if err != nil {
		return "", fmt.Errorf("error retrieving external IP address: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("failed to retrieve external IP address from %s: status %d: %s",
			s.url, resp.StatusCode, utils.TruncateString(strings.TrimSpace(string(resp.Body)), 200))
	}

	ip := strings.TrimSpace(string(resp.Body))
	if !IsValidIPv4(ip) {
		return "", fmt.Errorf("invalid IP address received from %s: %q", s.url, utils.TruncateString(ip, 64))
	}
	return ip, nil
}
