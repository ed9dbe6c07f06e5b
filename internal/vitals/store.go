package vitals

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

// VitalsStore persists health snapshots. It is an append-only history;
// the in-memory map remains the source of current state.
type VitalsStore struct {
	db *sql.DB
}

// NewVitalsStore creates a store backed by the shared database handle.
func NewVitalsStore(db *sql.DB) *VitalsStore {
	return &VitalsStore{db: db}
}

// InsertSnapshot appends one health snapshot.
func (s *VitalsStore) InsertSnapshot(ctx context.Context, snap models.HealthSnapshot) error {
	factors, err := json.Marshal(snap.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	recs, err := json.Marshal(snap.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	var failAt any
	if snap.PredictedFailureAt != nil {
		failAt = *snap.PredictedFailureAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vitals_snapshots (
			device_id, score, risk, predicted_failure_at, confidence,
			factors, recommendations, sample_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.DeviceID, snap.Score, string(snap.Risk), failAt, snap.Confidence,
		string(factors), string(recs), snap.SampleCount, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// SnapshotHistory returns a device's persisted snapshots, newest first.
func (s *VitalsStore) SnapshotHistory(ctx context.Context, deviceID string, limit int) ([]models.HealthSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, score, risk, predicted_failure_at, confidence,
		       factors, recommendations, sample_count, updated_at
		FROM vitals_snapshots
		WHERE device_id = ? ORDER BY updated_at DESC LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot history: %w", err)
	}
	defer rows.Close()

	var out []models.HealthSnapshot
	for rows.Next() {
		var snap models.HealthSnapshot
		var risk, factors, recs string
		var failAt sql.NullTime
		if err := rows.Scan(&snap.DeviceID, &snap.Score, &risk, &failAt, &snap.Confidence,
			&factors, &recs, &snap.SampleCount, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Risk = models.RiskLevel(risk)
		if failAt.Valid {
			t := failAt.Time
			snap.PredictedFailureAt = &t
		}
		if err := json.Unmarshal([]byte(factors), &snap.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal factors: %w", err)
		}
		if err := json.Unmarshal([]byte(recs), &snap.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteOldSnapshots removes snapshots older than the cutoff and returns
// the number of rows deleted.
func (s *VitalsStore) DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM vitals_snapshots WHERE updated_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	return res.RowsAffected()
}
