package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

// KeyStore provides persistence for agent keys.
type KeyStore struct {
	db *sql.DB
}

// NewKeyStore creates a KeyStore and runs auth migrations.
func NewKeyStore(ctx context.Context, store plugin.Store) (*KeyStore, error) {
	if err := store.Migrate(ctx, "auth", migrations); err != nil {
		return nil, fmt.Errorf("auth migrations: %w", err)
	}
	return &KeyStore{db: store.DB()}, nil
}

// InsertKey stores a new agent key.
func (s *KeyStore) InsertKey(ctx context.Context, k *AgentKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_agent_keys (id, name, secret_hash, created_at, revoked)
		VALUES (?, ?, ?, ?, ?)`,
		k.ID, k.Name, k.SecretHash, k.CreatedAt, k.Revoked,
	)
	if err != nil {
		return fmt.Errorf("insert agent key: %w", err)
	}
	return nil
}

// GetKey returns an agent key by ID.
func (s *KeyStore) GetKey(ctx context.Context, id string) (*AgentKey, error) {
	return scanKey(s.db.QueryRowContext(ctx, `
		SELECT id, name, secret_hash, created_at, last_used_at, revoked
		FROM auth_agent_keys WHERE id = ?`, id))
}

// ListKeys returns all agent keys, oldest first.
func (s *KeyStore) ListKeys(ctx context.Context) ([]AgentKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, secret_hash, created_at, last_used_at, revoked
		FROM auth_agent_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}
	defer rows.Close()

	var keys []AgentKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// RevokeKey marks an agent key as revoked. Returns sql.ErrNoRows when the
// key does not exist.
func (s *KeyStore) RevokeKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auth_agent_keys SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoke agent key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchKey sets the last_used_at timestamp.
func (s *KeyStore) TouchKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE auth_agent_keys SET last_used_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

// scanKey reads one agent key row from either a Row or Rows.
func scanKey(row interface{ Scan(...any) error }) (*AgentKey, error) {
	var k AgentKey
	var lastUsed sql.NullTime
	if err := row.Scan(&k.ID, &k.Name, &k.SecretHash, &k.CreatedAt, &lastUsed, &k.Revoked); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		k.LastUsedAt = lastUsed.Time
	}
	return &k, nil
}

// migrations for the auth module.
var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create agent key table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE auth_agent_keys (
					id           TEXT PRIMARY KEY,
					name         TEXT NOT NULL,
					secret_hash  TEXT NOT NULL,
					created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_used_at DATETIME,
					revoked      INTEGER NOT NULL DEFAULT 0
				)`)
			return err
		},
	},
}
