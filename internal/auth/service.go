package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service errors.
var (
	ErrInvalidKey   = errors.New("invalid agent key")
	ErrKeyRevoked   = errors.New("agent key is revoked")
	ErrKeyNotFound  = errors.New("agent key not found")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenGrant is the response to a successful subscriber token mint.
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Service provides agent-key and subscriber-token logic.
type Service struct {
	store      *KeyStore
	tokens     *TokenService
	adminToken string
	logger     *zap.Logger

	// verified caches SHA-256 digests of secrets that already passed a
	// bcrypt check, keyed by key ID. A bcrypt compare per ingest batch
	// would dominate the request; cache hits cost one SHA-256.
	verified sync.Map
}

type verifiedKey struct {
	digest string
	key    AgentKey
}

// NewService creates an auth Service. An empty adminToken disables the
// management surface entirely.
func NewService(store *KeyStore, tokens *TokenService, adminToken string, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Tokens returns the token service for the WebSocket handler.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// CreateAgentKey mints a new ingest credential. The returned raw key is the
// only copy; the store keeps a bcrypt hash.
func (s *Service) CreateAgentKey(ctx context.Context, name string) (*AgentKey, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("key name is required")
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashSecret(secret, 0)
	if err != nil {
		return nil, "", err
	}

	key := &AgentKey{
		ID:         uuid.New().String(),
		Name:       name,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertKey(ctx, key); err != nil {
		return nil, "", fmt.Errorf("save agent key: %w", err)
	}

	s.logger.Info("agent key created", zap.String("key_id", key.ID), zap.String("name", name))
	return key, formatAgentKey(key.ID, secret), nil
}

// VerifyAgentKey checks a raw key against the store. Secrets that already
// passed a bcrypt check verify against the cached digest; only full
// verifications touch last_used_at.
func (s *Service) VerifyAgentKey(ctx context.Context, raw string) (*AgentKey, error) {
	id, secret, err := parseAgentKey(raw)
	if err != nil {
		return nil, ErrInvalidKey
	}

	digest := HashToken(secret)
	if v, ok := s.verified.Load(id); ok {
		cached := v.(verifiedKey)
		if subtle.ConstantTimeCompare([]byte(cached.digest), []byte(digest)) == 1 {
			k := cached.key
			return &k, nil
		}
	}

	key, err := s.store.GetKey(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup agent key: %w", err)
	}
	if key.Revoked {
		return nil, ErrKeyRevoked
	}
	if !CheckSecret(key.SecretHash, secret) {
		return nil, ErrInvalidKey
	}

	s.verified.Store(id, verifiedKey{digest: digest, key: *key})
	_ = s.store.TouchKey(ctx, id)
	return key, nil
}

// RevokeAgentKey revokes a key and drops it from the verification cache.
func (s *Service) RevokeAgentKey(ctx context.Context, id string) error {
	if err := s.store.RevokeKey(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("revoke agent key: %w", err)
	}
	s.verified.Delete(id)
	s.logger.Info("agent key revoked", zap.String("key_id", id))
	return nil
}

// ListAgentKeys returns all agent keys.
func (s *Service) ListAgentKeys(ctx context.Context) ([]AgentKey, error) {
	return s.store.ListKeys(ctx)
}

// IssueSubscriberToken mints an access token for a query/stream consumer.
func (s *Service) IssueSubscriberToken(subject string) (*TokenGrant, error) {
	if subject == "" {
		return nil, fmt.Errorf("token subject is required")
	}
	token, err := s.tokens.IssueSubscriberToken(subject)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscriber token issued", zap.String("subject", subject))
	return &TokenGrant{
		AccessToken: token,
		ExpiresIn:   int(s.tokens.TokenTTL().Seconds()),
	}, nil
}

// ValidateSubscriberToken validates an access token.
func (s *Service) ValidateSubscriberToken(token string) (*Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAdminToken reports whether raw matches the configured management
// token. Always false when no token is configured.
func (s *Service) VerifyAdminToken(raw string) bool {
	if s.adminToken == "" || raw == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.adminToken), []byte(raw)) == 1
}

// Authenticate resolves a bearer credential of any kind to a principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if s.VerifyAdminToken(token) {
		return &Principal{Kind: PrincipalAdmin, Name: "admin"}, nil
	}
	if IsAgentKey(token) {
		key, err := s.VerifyAgentKey(ctx, token)
		if err != nil {
			return nil, err
		}
		return &Principal{Kind: PrincipalAgent, Name: key.Name}, nil
	}
	claims, err := s.ValidateSubscriberToken(token)
	if err != nil {
		return nil, err
	}
	return &Principal{Kind: PrincipalSubscriber, Name: claims.Subject}, nil
}
