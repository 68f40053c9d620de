package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/onboarding", nil)
	req.Header.Set("HX-Request", "true")
	h.ServeHTTP(rec, req)

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'self' https://unpkg.com") {
		t.Errorf("CSP does not allow htmx: %s", csp)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", rec.Header().Get("X-Frame-Options"))
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("htmx responses should not be cached")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestIsSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"wizard step", http.MethodPost, "/onboarding/next", "Mozilla/5.0", false},
		{"gate", http.MethodGet, "/onboarding/gate?path=/", "Mozilla/5.0", false},
		{"traversal", http.MethodGet, "/static/../.env", "Mozilla/5.0", true},
		{"scanner", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "Mozilla/5.0", true},
		{"xss in query", http.MethodGet, "/onboarding?x=%3Cscript%3E", "Mozilla/5.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			if got := d.IsSuspicious(req); got != tt.want {
				t.Errorf("IsSuspicious = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct public", "203.0.113.9:1234", "", "203.0.113.9"},
		{"spoofed from public", "203.0.113.9:1234", "1.2.3.4", "203.0.113.9"},
		{"via trusted proxy", "10.0.0.2:80", "198.51.100.7, 10.0.0.2", "198.51.100.7"},
		{"trusted proxy garbage", "127.0.0.1:80", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromTrustedProxy(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.168.1.5:443"
	if !d.FromTrustedProxy(req) {
		t.Error("private address should be trusted")
	}
	req.RemoteAddr = "8.8.8.8:443"
	if d.FromTrustedProxy(req) {
		t.Error("public address should not be trusted")
	}
	if err := d.AddTrustedProxy("8.8.8.0/24"); err != nil {
		t.Fatal(err)
	}
	if !d.FromTrustedProxy(req) {
		t.Error("added network should be trusted")
	}
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestDetectorMiddlewareRejects(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if d.SuspiciousCount() != 1 {
		t.Errorf("SuspiciousCount = %d", d.SuspiciousCount())
	}
}
