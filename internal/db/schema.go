package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS shelters (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    district     TEXT NOT NULL,
    subdistrict  TEXT,
    shelter_type TEXT NOT NULL,
    capacity     INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
    status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closed')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'staff')),
    shelter_id    INTEGER REFERENCES shelters(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME,
    CHECK (role = 'staff' OR shelter_id IS NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

-- warehouse is 'central' or 'shelter:<id>'; shelter_id mirrors it for the FK.
CREATE TABLE IF NOT EXISTS items (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    category   TEXT NOT NULL,
    warehouse  TEXT NOT NULL,
    shelter_id INTEGER REFERENCES shelters(id),
    quantity   INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    UNIQUE (name, warehouse),
    CHECK ((warehouse = 'central') = (shelter_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_items_warehouse_updated
    ON items(warehouse, updated_at DESC);

CREATE TABLE IF NOT EXISTS transactions (
    id                     INTEGER PRIMARY KEY,
    item_id                INTEGER NOT NULL REFERENCES items(id),
    direction              TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
    quantity               INTEGER NOT NULL CHECK (quantity > 0),
    destination            TEXT,
    destination_shelter_id INTEGER REFERENCES shelters(id),
    actor                  TEXT NOT NULL,
    note                   TEXT,
    created_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_item
    ON transactions(item_id, created_at DESC);

CREATE TRIGGER IF NOT EXISTS transactions_no_update
    BEFORE UPDATE ON transactions
BEGIN
    SELECT RAISE(ABORT, 'transactions are append-only');
END;

CREATE TRIGGER IF NOT EXISTS transactions_no_delete
    BEFORE DELETE ON transactions
BEGIN
    SELECT RAISE(ABORT, 'transactions are append-only');
END;

CREATE TABLE IF NOT EXISTS requests (
    id            INTEGER PRIMARY KEY,
    shelter_id    INTEGER NOT NULL REFERENCES shelters(id),
    status        TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
    requested_by  TEXT NOT NULL,
    action_by     TEXT,
    note          TEXT,
    reject_reason TEXT,
    created_at    DATETIME NOT NULL,
    resolved_at   DATETIME,
    CHECK (reject_reason IS NULL OR status = 'REJECTED')
);

CREATE INDEX IF NOT EXISTS idx_requests_shelter
    ON requests(shelter_id, created_at DESC);

CREATE TABLE IF NOT EXISTS request_lines (
    request_id INTEGER NOT NULL REFERENCES requests(id),
    line_no    INTEGER NOT NULL,
    item_id    INTEGER NOT NULL REFERENCES items(id),
    item_name  TEXT NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    PRIMARY KEY (request_id, line_no)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
