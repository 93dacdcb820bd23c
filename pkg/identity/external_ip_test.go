package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPublicIPv4(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"plain address", http.StatusOK, "203.0.113.5\n", "203.0.113.5", false},
		{"server error", http.StatusBadGateway, "upstream down", "", true},
		{"not an address", http.StatusOK, "<html>captive portal</html>", "", true},
		{"ipv6", http.StatusOK, "2001:db8::1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewIPService(srv.URL, time.Second).PublicIPv4(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("PublicIPv4() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PublicIPv4() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublicIPv4Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	if _, err := NewIPService(srv.URL, 50*time.Millisecond).PublicIPv4(context.Background()); err == nil {
		t.Fatal("PublicIPv4 succeeded against a hanging service")
	}
}
