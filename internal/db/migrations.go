package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// migrations is a list of statements applied in order after the tables are
// created. Each must be idempotent and valid in both dialects. Append new
// migrations at the end.
var migrations = []string{
	// Soft-deleted usernames can be reused.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
	     ON users(username) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_items_stash ON items(stash_id)`,
	`CREATE INDEX IF NOT EXISTS idx_drops_item ON drops(item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_drops_hashcode ON drops(hashcode)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_stash_hashcode ON trades(stash_id, hashcode)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_items_trade ON trade_items(trade_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_items_user ON user_items(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_stash ON events(stash_id, created_at)`,
}

// Migrate creates the schema for the connection's dialect and applies the
// migrations. Statements run one at a time since not every driver accepts
// several statements per Exec.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range statements(Schema(DialectOf(db))) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}

func statements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
