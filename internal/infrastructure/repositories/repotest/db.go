// Package repotest opens throwaway sqlite databases carrying the ledger schema.
package repotest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory sqlite database with the full schema. The pool
// is pinned to one connection, so concurrent transactions serialize the same
// way they would queue on row locks.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", sanitize(t.Name()), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	CreateSchema(t, db)
	return db
}

// NewConcurrentTestDB opens a file-backed WAL database with a multi-connection
// pool, so several transactions can be open at the same time.
func NewConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	CreateSchema(t, db)
	return db
}

func MustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func CreateSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, ddl := range schema {
		MustExec(t, db, ddl)
	}
}

var schema = []string{
	`CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE wallet_balances (
		wallet_id TEXT PRIMARY KEY,
		available_minor INTEGER NOT NULL DEFAULT 0,
		pending_minor INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		last_ledger_entry_id TEXT,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`,
	`CREATE TABLE ledger_entries (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		operation_id TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount_minor INTEGER NOT NULL CHECK (amount_minor > 0),
		currency TEXT NOT NULL,
		effective_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		related_entry_id TEXT,
		relation_type TEXT,
		external_reference TEXT,
		metadata TEXT
	);`,
	`CREATE INDEX idx_ledger_wallet_created ON ledger_entries (wallet_id, created_at);`,
	`CREATE TABLE idempotency_records (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		scope_ref TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		request_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		operation_id TEXT NOT NULL,
		resource_id TEXT,
		result TEXT,
		created_at DATETIME,
		completed_at DATETIME,
		UNIQUE (scope, scope_ref, idempotency_key)
	);`,
	`CREATE TABLE payment_intents (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		status TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		currency TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		captured_at DATETIME,
		released_at DATETIME,
		UNIQUE (order_id, idempotency_key)
	);`,
	`CREATE TABLE payment_intent_allocations (
		id TEXT PRIMARY KEY,
		intent_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		hold_entry_id TEXT NOT NULL
	);`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		intent_id TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL,
		status TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		currency TEXT NOT NULL,
		completed_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE payment_allocations (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		ledger_entry_id TEXT NOT NULL
	);`,
	`CREATE TABLE refunds (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL UNIQUE,
		order_id TEXT NOT NULL,
		status TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		currency TEXT NOT NULL,
		reason TEXT,
		completed_at DATETIME
	);`,
	`CREATE TABLE refund_allocations (
		id TEXT PRIMARY KEY,
		refund_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL,
		amount_minor INTEGER NOT NULL,
		ledger_entry_id TEXT NOT NULL
	);`,
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
