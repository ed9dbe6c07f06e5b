package telemetry

import (
	"database/sql"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

// migrations returns the telemetry module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create measurement and anomaly tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS telemetry_measurements (
						id               INTEGER PRIMARY KEY AUTOINCREMENT,
						device_id        TEXT NOT NULL,
						agent_id         TEXT NOT NULL DEFAULT '',
						timestamp        DATETIME NOT NULL,
						rssi             REAL NOT NULL,
						smoothed_rssi    REAL NOT NULL,
						ewma_rssi        REAL NOT NULL,
						anomaly_score    REAL NOT NULL DEFAULT 0,
						snr              REAL,
						frequency_mhz    REAL,
						channel          INTEGER,
						loc_x            REAL,
						loc_y            REAL,
						response_time_ms REAL,
						is_online        INTEGER,
						error_count      INTEGER,
						temperature_c    REAL,
						power_w          REAL,
						cpu_pct          REAL,
						mem_pct          REAL,
						battery_pct      REAL,
						bytes_tx         INTEGER,
						bytes_rx         INTEGER
					)`,
					`CREATE INDEX IF NOT EXISTS idx_telemetry_measurements_device_time
						ON telemetry_measurements(device_id, timestamp)`,

					`CREATE TABLE IF NOT EXISTS telemetry_anomalies (
						id          TEXT PRIMARY KEY,
						device_id   TEXT NOT NULL,
						kind        TEXT NOT NULL,
						severity    TEXT NOT NULL,
						score       REAL NOT NULL,
						value       REAL NOT NULL DEFAULT 0,
						expected    REAL NOT NULL DEFAULT 0,
						description TEXT NOT NULL DEFAULT '',
						detected_at DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_telemetry_anomalies_device
						ON telemetry_anomalies(device_id)`,
					`CREATE INDEX IF NOT EXISTS idx_telemetry_anomalies_detected
						ON telemetry_anomalies(detected_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
