package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesWalletSchema(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"users", "wallets", "ledger_entries", "games", "carts", "cart_items", "orders", "addresses", "admins", "settings"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}

	for _, column := range []string{"current_points", "total_earned", "total_redeemed", "referral_code", "referral_count"} {
		if !conn.Migrator().HasColumn("wallets", column) {
			t.Fatalf("wallets missing column %s", column)
		}
	}

	for _, column := range []string{"type", "points", "source", "dedup_key", "order_id"} {
		if !conn.Migrator().HasColumn("ledger_entries", column) {
			t.Fatalf("ledger_entries missing column %s", column)
		}
	}
}

func TestMigrateSQLiteBackfillsDedupKeyOnLegacyLedgerTable(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errExec := conn.Exec(`
		CREATE TABLE ledger_entries (
			id integer primary key autoincrement,
			wallet_id integer not null,
			type text not null,
			points integer not null,
			source text not null,
			description text not null,
			created_at datetime
		)
	`).Error; errExec != nil {
		t.Fatalf("create legacy ledger_entries table: %v", errExec)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"dedup_key", "order_id"} {
		if !conn.Migrator().HasColumn("ledger_entries", column) {
			t.Fatalf("ledger_entries missing column %s after backfill migration", column)
		}
	}
}
