package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// asAdmin stamps the management principal onto a request, standing in for
// the middleware.
func asAdmin(req *http.Request) *http.Request {
	return req.WithContext(WithPrincipal(req.Context(), &Principal{Kind: PrincipalAdmin, Name: "admin"}))
}

func TestHandleCreateKeyMintsWorkingKey(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/keys", strings.NewReader(`{"name":"site-a"}`)))
	rec := httptest.NewRecorder()
	h.handleCreateKey(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, leaked := body["secret_hash"]; leaked {
		t.Fatal("response leaked the secret hash")
	}
	raw, _ := body["key"].(string)
	if raw == "" {
		t.Fatal("response missing the raw key")
	}

	key, err := svc.VerifyAgentKey(context.Background(), raw)
	if err != nil {
		t.Fatalf("minted key does not verify: %v", err)
	}
	if key.Name != "site-a" {
		t.Errorf("key name = %q, want %q", key.Name, "site-a")
	}
}

func TestHandleCreateKeyRequiresAdmin(t *testing.T) {
	h := NewHandler(newTestService(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/keys", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	h.handleCreateKey(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("no principal: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/keys", strings.NewReader(`{"name":"x"}`))
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{Kind: PrincipalAgent, Name: "site-a"}))
	rec = httptest.NewRecorder()
	h.handleCreateKey(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("agent principal: status = %d, want 403", rec.Code)
	}
}

func TestHandleCreateKeyValidates(t *testing.T) {
	h := NewHandler(newTestService(t), zap.NewNop())

	for _, body := range []string{`{"name":`, `{"name":""}`, `{}`} {
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/keys", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		h.handleCreateKey(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleListKeys(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.handleListKeys(rec, asAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/auth/keys", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body == "null" {
		t.Fatal("empty key list encoded as null, want []")
	}

	if _, _, err := svc.CreateAgentKey(context.Background(), "site-a"); err != nil {
		t.Fatalf("CreateAgentKey: %v", err)
	}
	rec = httptest.NewRecorder()
	h.handleListKeys(rec, asAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/auth/keys", nil)))
	var keys []AgentKey
	if err := json.NewDecoder(rec.Body).Decode(&keys); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(keys) != 1 || keys[0].Name != "site-a" {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestHandleRevokeKey(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc, zap.NewNop())
	key, _, err := svc.CreateAgentKey(context.Background(), "site-a")
	if err != nil {
		t.Fatalf("CreateAgentKey: %v", err)
	}

	req := asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/auth/keys/"+key.ID, nil))
	req.SetPathValue("id", key.ID)
	rec := httptest.NewRecorder()
	h.handleRevokeKey(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = asAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/auth/keys/nope", nil))
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	h.handleRevokeKey(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown key: status = %d, want 404", rec.Code)
	}
}

func TestHandleIssueToken(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/tokens", strings.NewReader(`{"subject":"dashboard"}`)))
	rec := httptest.NewRecorder()
	h.handleIssueToken(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var grant TokenGrant
	if err := json.NewDecoder(rec.Body).Decode(&grant); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := svc.ValidateSubscriberToken(grant.AccessToken)
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "dashboard")
	}
	if grant.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want positive", grant.ExpiresIn)
	}

	req = asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/auth/tokens", strings.NewReader(`{"subject":""}`)))
	rec = httptest.NewRecorder()
	h.handleIssueToken(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty subject: status = %d, want 400", rec.Code)
	}
}
