package db

// Timestamps are Unix seconds in BIGINT columns so both dialects scan them
// into int64.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'teacher', 'student')),
    created_at    BIGINT NOT NULL,
    deleted_at    BIGINT
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS stashes (
    id        INTEGER PRIMARY KEY,
    course_id BIGINT NOT NULL UNIQUE,
    name      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY,
    stash_id      INTEGER NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    max_number    INTEGER CHECK (max_number IS NULL OR max_number >= 1),
    detail        TEXT NOT NULL DEFAULT '',
    detail_format TEXT NOT NULL DEFAULT 'html',
    image         BLOB,
    image_mime    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS drops (
    id              INTEGER PRIMARY KEY,
    item_id         INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    max_pickup      INTEGER CHECK (max_pickup IS NULL OR max_pickup >= 1),
    pickup_interval BIGINT NOT NULL DEFAULT 0 CHECK (pickup_interval >= 0),
    hashcode        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drop_pickups (
    id           INTEGER PRIMARY KEY,
    drop_id      INTEGER NOT NULL REFERENCES drops(id) ON DELETE CASCADE,
    user_id      INTEGER NOT NULL,
    pickup_count INTEGER NOT NULL DEFAULT 0 CHECK (pickup_count >= 0),
    last_pickup  BIGINT,
    UNIQUE (drop_id, user_id)
);

CREATE TABLE IF NOT EXISTS user_items (
    id       INTEGER PRIMARY KEY,
    item_id  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    user_id  INTEGER NOT NULL,
    quantity INTEGER CHECK (quantity IS NULL OR quantity >= 0),
    UNIQUE (item_id, user_id)
);

CREATE TABLE IF NOT EXISTS trades (
    id         INTEGER PRIMARY KEY,
    stash_id   INTEGER NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    loss_title TEXT NOT NULL DEFAULT '',
    gain_title TEXT NOT NULL DEFAULT '',
    hashcode   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_items (
    id        INTEGER PRIMARY KEY,
    trade_id  INTEGER NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
    item_id   INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    quantity  INTEGER CHECK (quantity IS NULL OR quantity >= 1),
    gain_loss BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id             TEXT PRIMARY KEY,
    stash_id       INTEGER NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    kind           TEXT NOT NULL,
    actor_id       INTEGER NOT NULL,
    beneficiary_id INTEGER NOT NULL,
    item_id        INTEGER NOT NULL,
    quantity       INTEGER NOT NULL,
    created_at     BIGINT NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'teacher', 'student')),
    created_at    BIGINT NOT NULL,
    deleted_at    BIGINT
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS stashes (
    id        BIGSERIAL PRIMARY KEY,
    course_id BIGINT NOT NULL UNIQUE,
    name      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id            BIGSERIAL PRIMARY KEY,
    stash_id      BIGINT NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    max_number    INTEGER CHECK (max_number IS NULL OR max_number >= 1),
    detail        TEXT NOT NULL DEFAULT '',
    detail_format TEXT NOT NULL DEFAULT 'html',
    image         BYTEA,
    image_mime    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS drops (
    id              BIGSERIAL PRIMARY KEY,
    item_id         BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    max_pickup      INTEGER CHECK (max_pickup IS NULL OR max_pickup >= 1),
    pickup_interval BIGINT NOT NULL DEFAULT 0 CHECK (pickup_interval >= 0),
    hashcode        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drop_pickups (
    id           BIGSERIAL PRIMARY KEY,
    drop_id      BIGINT NOT NULL REFERENCES drops(id) ON DELETE CASCADE,
    user_id      BIGINT NOT NULL,
    pickup_count INTEGER NOT NULL DEFAULT 0 CHECK (pickup_count >= 0),
    last_pickup  BIGINT,
    UNIQUE (drop_id, user_id)
);

CREATE TABLE IF NOT EXISTS user_items (
    id       BIGSERIAL PRIMARY KEY,
    item_id  BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    user_id  BIGINT NOT NULL,
    quantity INTEGER CHECK (quantity IS NULL OR quantity >= 0),
    UNIQUE (item_id, user_id)
);

CREATE TABLE IF NOT EXISTS trades (
    id         BIGSERIAL PRIMARY KEY,
    stash_id   BIGINT NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    loss_title TEXT NOT NULL DEFAULT '',
    gain_title TEXT NOT NULL DEFAULT '',
    hashcode   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_items (
    id        BIGSERIAL PRIMARY KEY,
    trade_id  BIGINT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
    item_id   BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    quantity  INTEGER CHECK (quantity IS NULL OR quantity >= 1),
    gain_loss BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id             TEXT PRIMARY KEY,
    stash_id       BIGINT NOT NULL REFERENCES stashes(id) ON DELETE CASCADE,
    kind           TEXT NOT NULL,
    actor_id       BIGINT NOT NULL,
    beneficiary_id BIGINT NOT NULL,
    item_id        BIGINT NOT NULL,
    quantity       INTEGER NOT NULL,
    created_at     BIGINT NOT NULL
);
`

// Schema returns the table definitions for d.
func Schema(d Dialect) string {
	if d == Postgres {
		return postgresSchema
	}
	return sqliteSchema
}
