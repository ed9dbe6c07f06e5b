package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// TelemetryStore provides database access for the telemetry plugin.
type TelemetryStore struct {
	db *sql.DB
}

// NewTelemetryStore creates a TelemetryStore backed by the given database.
func NewTelemetryStore(db *sql.DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

// InsertMeasurement persists one enriched measurement.
func (s *TelemetryStore) InsertMeasurement(ctx context.Context, e ring.Entry) error {
	var isOnline *int
	if e.IsOnline != nil {
		v := 0
		if *e.IsOnline {
			v = 1
		}
		isOnline = &v
	}
	var locX, locY *float64
	if e.Location != nil {
		locX, locY = &e.Location.X, &e.Location.Y
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_measurements (
			device_id, agent_id, timestamp, rssi, smoothed_rssi, ewma_rssi,
			anomaly_score, snr, frequency_mhz, channel, loc_x, loc_y,
			response_time_ms, is_online, error_count, temperature_c, power_w,
			cpu_pct, mem_pct, battery_pct, bytes_tx, bytes_rx
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DeviceID, e.AgentID, e.Timestamp, e.RSSI, e.SmoothedRSSI, e.EWMARSSI,
		e.AnomalyScore, e.SNR, e.Frequency, e.Channel, locX, locY,
		e.ResponseTimeMS, isOnline, e.ErrorCount, e.TemperatureC, e.PowerW,
		e.CPUPct, e.MemPct, e.BatteryPct, e.BytesTx, e.BytesRx,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// InsertAnomaly persists one anomaly event.
func (s *TelemetryStore) InsertAnomaly(ctx context.Context, a models.AnomalyEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_anomalies (
			id, device_id, kind, severity, score, value, expected, description, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, string(a.Kind), string(a.Severity),
		a.Score, a.Value, a.Expected, a.Description, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

// ListAnomalies returns anomalies ordered newest first. Pass an empty
// deviceID to list across all devices.
func (s *TelemetryStore) ListAnomalies(ctx context.Context, deviceID string, limit int) ([]models.AnomalyEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if deviceID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, device_id, kind, severity, score, value, expected, description, detected_at
			FROM telemetry_anomalies ORDER BY detected_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, device_id, kind, severity, score, value, expected, description, detected_at
			FROM telemetry_anomalies WHERE device_id = ? ORDER BY detected_at DESC LIMIT ?`,
			deviceID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.AnomalyEvent
	for rows.Next() {
		var a models.AnomalyEvent
		var kind, severity string
		if err := rows.Scan(
			&a.ID, &a.DeviceID, &kind, &severity,
			&a.Score, &a.Value, &a.Expected, &a.Description, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly row: %w", err)
		}
		a.Kind = models.AnomalyKind(kind)
		a.Severity = models.Severity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}

// MeasurementsBetween returns persisted measurements for a device inside
// [from, to], oldest first. Used by the historical locator when the
// in-memory ring no longer covers the window.
func (s *TelemetryStore) MeasurementsBetween(ctx context.Context, deviceID string, from, to time.Time) ([]ring.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, agent_id, timestamp, rssi, smoothed_rssi, ewma_rssi, anomaly_score
		FROM telemetry_measurements
		WHERE device_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp`,
		deviceID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("measurements between: %w", err)
	}
	defer rows.Close()

	var out []ring.Entry
	for rows.Next() {
		var e ring.Entry
		if err := rows.Scan(
			&e.DeviceID, &e.AgentID, &e.Timestamp, &e.RSSI,
			&e.SmoothedRSSI, &e.EWMARSSI, &e.AnomalyScore,
		); err != nil {
			return nil, fmt.Errorf("scan measurement row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOldMeasurements deletes measurements older than the given time and
// returns the number of rows removed.
func (s *TelemetryStore) DeleteOldMeasurements(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM telemetry_measurements WHERE timestamp < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old measurements: %w", err)
	}
	return res.RowsAffected()
}

// DeleteOldAnomalies deletes anomalies older than the given time and
// returns the number of rows removed.
func (s *TelemetryStore) DeleteOldAnomalies(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM telemetry_anomalies WHERE detected_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("delete old anomalies: %w", err)
	}
	return res.RowsAffected()
}
