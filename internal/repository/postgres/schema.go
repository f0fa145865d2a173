package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables. Safe to call on every start.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    creator_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    deadline TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rooms_creator ON rooms(creator_id, created_at DESC);

CREATE TABLE IF NOT EXISTS room_options (
    room_id TEXT NOT NULL REFERENCES rooms(id),
    idx INT NOT NULL,
    text TEXT NOT NULL,
    votes BIGINT NOT NULL DEFAULT 0 CHECK (votes >= 0),
    PRIMARY KEY (room_id, idx)
);

CREATE TABLE IF NOT EXISTS room_justifications (
    id BIGSERIAL PRIMARY KEY,
    room_id TEXT NOT NULL,
    option_idx INT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    FOREIGN KEY (room_id, option_idx) REFERENCES room_options(room_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_room_justifications_room ON room_justifications(room_id, option_idx, id);

CREATE TABLE IF NOT EXISTS room_voters (
    seq BIGSERIAL,
    room_id TEXT NOT NULL REFERENCES rooms(id),
    voter_id TEXT NOT NULL,
    voted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (room_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_room_voters_seq ON room_voters(room_id, seq);
`
