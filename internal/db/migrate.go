package db

import (
	"context"
	"database/sql"
	"fmt"

	"call-signaling/pkg/utils"
)

// profiles is shared with the external profile store; only last_seen is ours.
const signalingMigration = `
CREATE TABLE IF NOT EXISTS profiles (
    user_id text PRIMARY KEY,
    last_seen timestamptz NULL
);

ALTER TABLE profiles ADD COLUMN IF NOT EXISTS last_seen timestamptz NULL;

CREATE INDEX IF NOT EXISTS profiles_last_seen_idx
ON profiles (last_seen DESC);

CREATE TABLE IF NOT EXISTS calls (
    id text PRIMARY KEY,
    caller_id text NOT NULL,
    receiver_id text NOT NULL,
    status text NOT NULL DEFAULT 'pending',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    ended_at timestamptz NULL,
    CONSTRAINT calls_status_check CHECK (status IN ('pending', 'ended')),
    CONSTRAINT calls_distinct_participants CHECK (caller_id <> receiver_id),
    CONSTRAINT calls_ended_at_check CHECK ((status = 'ended') = (ended_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS calls_receiver_status_created_idx
ON calls (receiver_id, status, created_at DESC);
`

// Migrate creates the signaling schema. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	err := utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, signalingMigration)
		return err
	})
	if err != nil {
		return fmt.Errorf("signaling migration: %w", err)
	}
	return nil
}
