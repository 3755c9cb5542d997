package presence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo keeps presence on the profiles table (profiles.last_seen).
// Profile attributes are owned elsewhere; this repository only touches last_seen.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const (
	// Touching an unknown user creates its profile row; writes are last-write-wins.
	queryUpsertLastSeen = `
INSERT INTO profiles (user_id, last_seen)
VALUES ($1, $2)
ON CONFLICT (user_id)
DO UPDATE SET last_seen = EXCLUDED.last_seen
`
	queryLastSeen  = `SELECT last_seen FROM profiles WHERE user_id = $1`
	queryListAll   = `SELECT user_id, last_seen FROM profiles`
	queryListSince = `SELECT user_id, last_seen FROM profiles WHERE last_seen >= $1`
)

func (r *PostgresRepo) Upsert(ctx context.Context, userID string, at time.Time) error {
	if r.db == nil {
		return errors.New("presence: db is nil")
	}
	_, err := r.db.ExecContext(ctx, queryUpsertLastSeen, userID, at)
	return err
}

func (r *PostgresRepo) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	if r.db == nil {
		return time.Time{}, false, errors.New("presence: db is nil")
	}
	var at sql.NullTime
	if err := r.db.QueryRowContext(ctx, queryLastSeen, userID).Scan(&at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if !at.Valid {
		return time.Time{}, false, nil
	}
	return at.Time.UTC(), true, nil
}

func (r *PostgresRepo) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	if r.db == nil {
		return nil, errors.New("presence: db is nil")
	}
	var (
		rows *sql.Rows
		err  error
	)
	if since.IsZero() {
		rows, err = r.db.QueryContext(ctx, queryListAll)
	} else {
		rows, err = r.db.QueryContext(ctx, queryListSince, since)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec Record
			at  sql.NullTime
		)
		if err := rows.Scan(&rec.UserID, &at); err != nil {
			return nil, err
		}
		if at.Valid {
			rec.LastSeenAt = at.Time.UTC()
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
