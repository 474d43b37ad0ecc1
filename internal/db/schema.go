package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// transactions is append-only: nothing updates or deletes its rows, and the
// RESTRICT references keep personnel and items with history from being deleted.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS personnel (
    id                TEXT PRIMARY KEY,
    surname           TEXT NOT NULL,
    firstname         TEXT NOT NULL,
    middle_initial    TEXT,
    rank              TEXT NOT NULL,
    serial            TEXT NOT NULL UNIQUE,
    office            TEXT NOT NULL,
    telephone         TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'Active' CHECK (status IN ('Active', 'Inactive')),
    qr_code           TEXT NOT NULL,
    linked_account_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    registration_date DATETIME NOT NULL,
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id                TEXT PRIMARY KEY,
    item_type         TEXT NOT NULL CHECK (item_type IN ('M14', 'M16', 'M4', 'GLOCK', '45')),
    serial            TEXT NOT NULL UNIQUE,
    description       TEXT,
    condition         TEXT NOT NULL DEFAULT 'Good' CHECK (condition IN ('Good', 'Fair', 'Poor', 'Damaged')),
    status            TEXT NOT NULL DEFAULT 'Available' CHECK (status IN ('Available', 'Issued', 'Maintenance', 'Retired')),
    qr_code           TEXT NOT NULL,
    registration_date DATETIME NOT NULL,
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);

CREATE TABLE IF NOT EXISTS transactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    person_id   TEXT NOT NULL REFERENCES personnel(id) ON DELETE RESTRICT,
    item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE RESTRICT,
    action      TEXT NOT NULL CHECK (action IN ('Take', 'Return')),
    occurred_at DATETIME NOT NULL,
    magazines   INTEGER CHECK (magazines >= 0),
    rounds      INTEGER CHECK (rounds >= 0),
    duty_type   TEXT,
    notes       TEXT,
    recorded_by INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_occurred ON transactions(occurred_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id, occurred_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_person ON transactions(person_id, occurred_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS qr_codes (
    id           INTEGER PRIMARY KEY,
    kind         TEXT NOT NULL CHECK (kind IN ('personnel', 'item')),
    reference_id TEXT NOT NULL,
    data         TEXT NOT NULL,
    image_key    TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (kind, reference_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_qr_codes_data ON qr_codes(data);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: custody lookups by holder only ever look at Take rows.
	`CREATE INDEX IF NOT EXISTS idx_transactions_person_take
	     ON transactions(person_id, item_id) WHERE action = 'Take'`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
