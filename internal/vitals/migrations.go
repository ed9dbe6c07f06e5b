package vitals

import (
	"database/sql"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

// migrations returns the vitals module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create health snapshot table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS vitals_snapshots (
						id                   INTEGER PRIMARY KEY AUTOINCREMENT,
						device_id            TEXT NOT NULL,
						score                REAL NOT NULL,
						risk                 TEXT NOT NULL,
						predicted_failure_at DATETIME,
						confidence           REAL NOT NULL DEFAULT 0,
						factors              TEXT NOT NULL DEFAULT 'null',
						recommendations      TEXT NOT NULL DEFAULT 'null',
						sample_count         INTEGER NOT NULL,
						updated_at           DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_vitals_snapshots_device_time
						ON vitals_snapshots(device_id, updated_at)`,
					`CREATE INDEX IF NOT EXISTS idx_vitals_snapshots_time
						ON vitals_snapshots(updated_at)`,
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
