package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Client Tests
// =============================================================================

func TestNewClient(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost:8787/", Token: "t"})

	if client.baseURL != "http://localhost:8787" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", client.httpClient.Timeout)
	}
}

func TestClientSendsTokenOnWritesOnly(t *testing.T) {
	seen := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Method] = r.Header.Get(AuthHeader)
		if r.Method == http.MethodPut && r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("PUT without JSON content type")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "secret"})
	ctx := context.Background()

	for _, do := range []func() (*http.Response, error){
		func() (*http.Response, error) { return client.Get(ctx, "/api/domains") },
		func() (*http.Response, error) { return client.Put(ctx, "/api/domains", map[string]string{"domain": "neo"}) },
		func() (*http.Response, error) { return client.Delete(ctx, "/api/domain/neo") },
	} {
		resp, err := do()
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if err := DecodeResponse(resp, nil); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}

	if seen[http.MethodGet] != "" {
		t.Errorf("GET carried credential %q", seen[http.MethodGet])
	}
	if seen[http.MethodPut] != "Bearer secret" || seen[http.MethodDelete] != "Bearer secret" {
		t.Errorf("writes missing credential: %v", seen)
	}
}

func TestDecodeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			WriteJSON(w, http.StatusOK, map[string]string{"version": "1"})
		case "/bad":
			BadRequest(w, "No domain found")
		default:
			http.Error(w, "plain failure", http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	ctx := context.Background()

	resp, err := client.Get(ctx, "/ok")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var out map[string]string
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["version"] != "1" {
		t.Errorf("version = %q", out["version"])
	}

	resp, err = client.Get(ctx, "/bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var statusErr *StatusError
	if err := DecodeResponse(resp, &out); !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Message != "No domain found" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}

	resp, err = client.Get(ctx, "/other")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := DecodeResponse(resp, nil); !errors.As(err, &statusErr) || statusErr.Message != "plain failure" {
		t.Errorf("expected plain-text message, got %v", err)
	}
}

func TestDomainPath(t *testing.T) {
	tests := []struct {
		domain string
		rest   []string
		want   string
	}{
		{"neo", nil, "/api/domain/neo"},
		{"neo", []string{"tags"}, "/api/domain/neo/tags"},
		{"my domain", []string{"a/b"}, "/api/domain/my%20domain/a%2Fb"},
	}
	for _, tt := range tests {
		if got := DomainPath(tt.domain, tt.rest...); got != tt.want {
			t.Errorf("DomainPath(%q, %v) = %q, want %q", tt.domain, tt.rest, got, tt.want)
		}
	}
}

// =============================================================================
// Response Helper Tests
// =============================================================================

func TestWriteFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFieldErrors(rec, http.StatusBadRequest, "validation failed", map[string]string{"name": "is required"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "validation failed" || body.Fields["name"] != "is required" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"object", `{"domain":"neo"}`, true},
		{"empty", ``, false},
		{"malformed", `{"domain":`, false},
		{"trailing", `{"domain":"neo"} {}`, false},
		{"not an object", `"neo"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/domains", stringReader(tt.body))
			rec := httptest.NewRecorder()
			var dst struct {
				Domain string `json:"domain"`
			}
			if got := DecodeJSON(rec, req, &dst); got != tt.ok {
				t.Fatalf("DecodeJSON = %v, want %v (body %s)", got, tt.ok, rec.Body.String())
			}
			if !tt.ok && rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func stringReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
