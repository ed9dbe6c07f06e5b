package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareSkipsNonAPIPaths(t *testing.T) {
	svc := newTestService(t)
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/stream", http.StatusOK}, // stream auths via query token
		{"/api/v1/telemetry/devices", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	svc := newTestService(t)
	_, raw, err := svc.CreateAgentKey(context.Background(), "site-a")
	if err != nil {
		t.Fatalf("CreateAgentKey: %v", err)
	}
	grant, err := svc.IssueSubscriberToken("dashboard")
	if err != nil {
		t.Fatalf("IssueSubscriberToken: %v", err)
	}

	var got *Principal
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		token    string
		wantKind PrincipalKind
	}{
		{"management token", "manage-me", PrincipalAdmin},
		{"agent key", raw, PrincipalAgent},
		{"subscriber token", grant.AccessToken, PrincipalSubscriber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/devices", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got == nil || got.Kind != tt.wantKind {
				t.Fatalf("principal = %+v, want kind %s", got, tt.wantKind)
			}
		})
	}
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-credential"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/telemetry/devices", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want problem+json", ct)
			}
		})
	}
}
