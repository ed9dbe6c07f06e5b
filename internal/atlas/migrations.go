package atlas

import (
	"database/sql"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

// migrations returns the atlas module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create anchor, position, and region tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS atlas_anchors (
						id         TEXT PRIMARY KEY,
						x          REAL NOT NULL,
						y          REAL NOT NULL,
						ref_rssi   REAL NOT NULL,
						updated_at DATETIME NOT NULL
					)`,

					`CREATE TABLE IF NOT EXISTS atlas_positions (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						device_id  TEXT NOT NULL,
						x          REAL NOT NULL,
						y          REAL NOT NULL,
						confidence REAL NOT NULL DEFAULT 0,
						method     TEXT NOT NULL,
						fixed_at   DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_atlas_positions_device_time
						ON atlas_positions(device_id, fixed_at)`,

					`CREATE TABLE IF NOT EXISTS atlas_regions (
						id                TEXT PRIMARY KEY,
						centre_x          REAL NOT NULL,
						centre_y          REAL NOT NULL,
						radius            REAL NOT NULL,
						severity          TEXT NOT NULL,
						kind              TEXT NOT NULL,
						confidence        REAL NOT NULL DEFAULT 0,
						member_device_ids TEXT NOT NULL DEFAULT '[]',
						created_at        DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_atlas_regions_time
						ON atlas_regions(created_at)`,
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
