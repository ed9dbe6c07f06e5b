package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// agentKeyPrefix marks raw agent keys on the wire: wsk_<id>.<secret>. The
// ID travels in cleartext so the server can look the key up; only the
// secret half is sensitive.
const agentKeyPrefix = "wsk_"

// AgentKey identifies one field agent's ingest credential. The secret is
// bcrypt-hashed at rest and shown to the operator exactly once, at creation.
type AgentKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	Revoked    bool      `json:"revoked"`
}

// generateSecret returns a 32-byte random secret, hex encoded. The hex form
// stays under bcrypt's 72-byte input limit.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// formatAgentKey renders the raw key handed to the agent.
func formatAgentKey(id, secret string) string {
	return agentKeyPrefix + id + "." + secret
}

// parseAgentKey splits a raw key into its ID and secret parts.
func parseAgentKey(raw string) (id, secret string, err error) {
	rest, ok := strings.CutPrefix(raw, agentKeyPrefix)
	if !ok {
		return "", "", fmt.Errorf("not an agent key")
	}
	id, secret, ok = strings.Cut(rest, ".")
	if !ok || id == "" || secret == "" {
		return "", "", fmt.Errorf("malformed agent key")
	}
	return id, secret, nil
}

// IsAgentKey reports whether a bearer credential looks like an agent key.
func IsAgentKey(raw string) bool {
	return strings.HasPrefix(raw, agentKeyPrefix)
}

// HashSecret creates a bcrypt hash of an agent key secret.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret verifies a secret against a bcrypt hash.
func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
