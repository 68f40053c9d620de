package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetly/internal/core"
)

func newBodyRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/onboarding/currency", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest(`{"currency":" gbp ","amount":12.5,"flag":true}`, "application/json"))
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON() = false")
	}
	if got := p.Get("currency"); got != "gbp" {
		t.Errorf("Get(currency) = %q", got)
	}
	if got := p.Get("amount"); got != "12.5" {
		t.Errorf("Get(amount) = %q", got)
	}
	if got := p.Get("flag"); got != "true" {
		t.Errorf("Get(flag) = %q", got)
	}
	if p.Has("missing") {
		t.Error("Has(missing) = true")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest("label=Groceries&category_id=", "application/x-www-form-urlencoded"))
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true for form data")
	}
	if got := p.Get("label"); got != "Groceries" {
		t.Errorf("Get(label) = %q", got)
	}
	if !p.Has("category_id") {
		t.Error("Has(category_id) = false for an empty field")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest("", ""))
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Get("anything") != "" {
		t.Error("expected empty value")
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest("name="+strings.Repeat("a", maxBodyBytes), "application/x-www-form-urlencoded"))
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestParseBody_MalformedJSON(t *testing.T) {
	_, errResp := ParseBody(newBodyRequest(`{"currency":`, "application/json"))
	if errResp == nil {
		t.Fatal("expected error response")
	}
	w := httptest.NewRecorder()
	errResp.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"3", 3, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/onboarding/fixed-costs/x", nil)
		req.SetPathValue("index", tt.value)
		got, err := ParseIndex(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIndex(%q) error = %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("ParseIndex(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestParseFixedCostPatch(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantAmount   *int64
		wantCategory *string
		wantErr      error
	}{
		{name: "amount only", body: "amount=12,50", wantAmount: ptr(int64(1250))},
		{name: "category only", body: "category_id=c1", wantCategory: ptr("c1")},
		{name: "clear category", body: "category_id=", wantCategory: ptr("")},
		{name: "blank amount ignored", body: "amount=&category_id=c2", wantCategory: ptr("c2")},
		{name: "negative amount", body: "amount=-5", wantErr: core.ErrInvalidAmount},
		{name: "garbage amount", body: "amount=abc", wantErr: core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(newBodyRequest(tt.body, "application/x-www-form-urlencoded"))
			if err := p.Parse(); err != nil {
				t.Fatal(err)
			}
			patch, err := ParseFixedCostPatch(p)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if (patch.Amount == nil) != (tt.wantAmount == nil) {
				t.Fatalf("amount = %v, want %v", patch.Amount, tt.wantAmount)
			}
			if tt.wantAmount != nil && patch.Amount.Cents != *tt.wantAmount {
				t.Errorf("amount = %d, want %d", patch.Amount.Cents, *tt.wantAmount)
			}
			if (patch.CategoryID == nil) != (tt.wantCategory == nil) {
				t.Fatalf("category = %v, want %v", patch.CategoryID, tt.wantCategory)
			}
			if tt.wantCategory != nil && *patch.CategoryID != *tt.wantCategory {
				t.Errorf("category = %q, want %q", *patch.CategoryID, *tt.wantCategory)
			}
		})
	}
}

func TestCurrentRoute(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"htmx header", "https://app.example/?tab=1", "", "/"},
		{"htmx header path", "https://app.example/settings", "/", "/settings"},
		{"query fallback", "", "/", "/"},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/onboarding/gate"
			if tt.query != "" {
				target += "?path=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("HX-Current-URL", tt.header)
			}
			if got := currentRoute(req); got != tt.want {
				t.Errorf("currentRoute = %q, want %q", got, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
