package auth

import (
	"testing"
	"time"
)

func newTestTokenService() *TokenService {
	return NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute)
}

func TestIssueAndValidateSubscriberToken(t *testing.T) {
	ts := newTestTokenService()

	token, err := ts.IssueSubscriberToken("dashboard")
	if err != nil {
		t.Fatalf("IssueSubscriberToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ts.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "dashboard")
	}
	if claims.Issuer != "wavesight" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "wavesight")
	}
	if claims.Scope != ScopeSubscribe {
		t.Errorf("Scope = %q, want %q", claims.Scope, ScopeSubscribe)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ts := NewTokenService([]byte("secret"), -time.Minute)
	token, err := ts.IssueSubscriberToken("dashboard")
	if err != nil {
		t.Fatalf("IssueSubscriberToken: %v", err)
	}
	if _, err := ts.ValidateToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := newTestTokenService().IssueSubscriberToken("dashboard")
	if err != nil {
		t.Fatalf("IssueSubscriberToken: %v", err)
	}
	other := NewTokenService([]byte("a completely different secret"), time.Minute)
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	ts := newTestTokenService()
	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.ValidateToken(bad); err == nil {
			t.Errorf("ValidateToken(%q) = nil, want error", bad)
		}
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("wsk_abc.def")
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
	if a != HashToken("wsk_abc.def") {
		t.Error("hash not deterministic")
	}
	if a == HashToken("wsk_abc.deg") {
		t.Error("distinct inputs produced the same hash")
	}
}
