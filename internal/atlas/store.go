package atlas

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

// AtlasStore persists anchors, position fixes, and region history.
type AtlasStore struct {
	db *sql.DB
}

// NewAtlasStore creates a store backed by the shared database handle.
func NewAtlasStore(db *sql.DB) *AtlasStore {
	return &AtlasStore{db: db}
}

// UpsertAnchor inserts or replaces an anchor row.
func (s *AtlasStore) UpsertAnchor(ctx context.Context, a models.Anchor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO atlas_anchors (id, x, y, ref_rssi, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			ref_rssi = excluded.ref_rssi,
			updated_at = excluded.updated_at`,
		a.ID, a.X, a.Y, a.RefRSSI, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert anchor: %w", err)
	}
	return nil
}

// DeleteAnchor removes an anchor row.
func (s *AtlasStore) DeleteAnchor(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM atlas_anchors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete anchor: %w", err)
	}
	return nil
}

// Anchors returns every anchor row sorted by ID.
func (s *AtlasStore) Anchors(ctx context.Context) ([]models.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, x, y, ref_rssi, updated_at
		FROM atlas_anchors
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query anchors: %w", err)
	}
	defer rows.Close()

	var anchors []models.Anchor
	for rows.Next() {
		var a models.Anchor
		if err := rows.Scan(&a.ID, &a.X, &a.Y, &a.RefRSSI, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

// InsertPositions appends a batch of fixes in one transaction.
func (s *AtlasStore) InsertPositions(ctx context.Context, fixes []models.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin positions tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO atlas_positions (device_id, x, y, confidence, method, fixed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare position insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range fixes {
		if _, err := stmt.ExecContext(ctx, p.DeviceID, p.X, p.Y, p.Confidence, string(p.Method), p.Timestamp); err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit positions: %w", err)
	}
	return nil
}

// PositionHistory returns a device's persisted fixes, newest first.
func (s *AtlasStore) PositionHistory(ctx context.Context, deviceID string, limit int) ([]models.Position, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, x, y, confidence, method, fixed_at
		FROM atlas_positions
		WHERE device_id = ?
		ORDER BY fixed_at DESC, id DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var fixes []models.Position
	for rows.Next() {
		var p models.Position
		var method string
		if err := rows.Scan(&p.DeviceID, &p.X, &p.Y, &p.Confidence, &method, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.Method = models.PositionMethod(method)
		fixes = append(fixes, p)
	}
	return fixes, rows.Err()
}

// DeleteOldPositions removes fixes older than the cutoff.
func (s *AtlasStore) DeleteOldPositions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM atlas_positions WHERE fixed_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old positions: %w", err)
	}
	return res.RowsAffected()
}

// InsertRegion appends one region row. Member IDs are stored as JSON.
func (s *AtlasStore) InsertRegion(ctx context.Context, r models.AnomalyRegion) error {
	members, err := json.Marshal(r.MemberDeviceIDs)
	if err != nil {
		return fmt.Errorf("marshal region members: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO atlas_regions (id, centre_x, centre_y, radius, severity, kind, confidence, member_device_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Centre.X, r.Centre.Y, r.Radius, string(r.Severity), r.Kind, r.Confidence, string(members), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert region: %w", err)
	}
	return nil
}

// RegionHistory returns persisted regions, newest first.
func (s *AtlasStore) RegionHistory(ctx context.Context, limit int) ([]models.AnomalyRegion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, centre_x, centre_y, radius, severity, kind, confidence, member_device_ids, created_at
		FROM atlas_regions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var regions []models.AnomalyRegion
	for rows.Next() {
		var r models.AnomalyRegion
		var severity, members string
		if err := rows.Scan(&r.ID, &r.Centre.X, &r.Centre.Y, &r.Radius, &severity, &r.Kind, &r.Confidence, &members, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		r.Severity = models.Severity(severity)
		if err := json.Unmarshal([]byte(members), &r.MemberDeviceIDs); err != nil {
			return nil, fmt.Errorf("unmarshal region members: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// DeleteOldRegions removes region rows older than the cutoff.
func (s *AtlasStore) DeleteOldRegions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM atlas_regions WHERE created_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old regions: %w", err)
	}
	return res.RowsAffected()
}
