package metrics

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseAllowedNetworks(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    int
	}{
		{"empty", nil, 0},
		{"single IP", []string{"192.168.1.1"}, 1},
		{"CIDR", []string{"10.0.0.0/8", "172.16.0.0/12"}, 2},
		{"skips invalid", []string{"192.168.1.1", "bogus", "10.0.0.0/99", " "}, 1},
		{"IPv6", []string{"::1", "fe80::/10"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseAllowedNetworks(tt.entries, discardLogger()); len(got) != tt.want {
				t.Errorf("parseAllowedNetworks() = %d networks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestIsIPAllowed(t *testing.T) {
	s := NewServer(New(), "", "", []string{"192.168.1.100", "10.0.0.0/8", "::1"}, discardLogger())

	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.100", true},
		{"192.168.1.101", false},
		{"10.20.30.40", true},
		{"11.0.0.1", false},
		{"::1", true},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		if got := s.isIPAllowed(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("isIPAllowed(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.100:12345", nil, "192.168.1.100"},
		{"forwarded chain", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "10.0.0.1, 192.168.1.1"}, "10.0.0.1"},
		{"real ip", "127.0.0.1:1", map[string]string{"X-Real-IP": "172.16.0.1"}, "172.16.0.1"},
		{"forwarded wins", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "172.16.0.1"}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/metrics", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			ip := clientIP(req)
			if ip == nil || ip.String() != tt.want {
				t.Errorf("clientIP() = %v, want %s", ip, tt.want)
			}
		})
	}
}

func TestServerHandler(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncActions("fund", "settled")

	s := NewServer(m, "", "/metrics", []string{"192.168.1.0/24"}, discardLogger())
	h := s.Handler()

	t.Run("allowed scrape", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.RemoteAddr = "192.168.1.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "fundchain_actions_total") {
			t.Error("scrape missing fundchain_actions_total")
		}
	})

	t.Run("denied scrape", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("health unfiltered", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}
