package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// NOTE: This repository assumes the calls table created by internal/db:
// calls (id pk, caller_id, receiver_id, status, created_at, ended_at)
// with CHECK (caller_id <> receiver_id) and an index on (receiver_id, status, created_at DESC).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const sessionColumns = `id, caller_id, receiver_id, status, created_at, ended_at`

const (
	queryInsertSession = `
INSERT INTO calls (id, caller_id, receiver_id, status, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	queryGetSession = `SELECT ` + sessionColumns + ` FROM calls WHERE id = $1`

	// Single-row conditional update: concurrent ends settle on one winner.
	queryMarkEnded = `
UPDATE calls
SET status = $3, ended_at = $2
WHERE id = $1 AND status = $4
RETURNING ` + sessionColumns

	queryListByReceiver = `SELECT ` + sessionColumns + `
FROM calls
WHERE receiver_id = $1 AND status = $2
ORDER BY created_at DESC, id DESC`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s       Session
		endedAt sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.CallerID,
		&s.ReceiverID,
		&s.Status,
		&s.CreatedAt,
		&endedAt,
	); err != nil {
		return Session{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		s.EndedAt = &t
	}
	return s, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, s Session) error {
	if r.db == nil {
		return errors.New("calls: db is nil")
	}
	_, err := r.db.ExecContext(ctx, queryInsertSession, s.ID, s.CallerID, s.ReceiverID, string(s.Status), s.CreatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, error) {
	if r.db == nil {
		return Session{}, errors.New("calls: db is nil")
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, queryGetSession, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresRepo) MarkEnded(ctx context.Context, id string, endedAt time.Time) (Session, bool, error) {
	if r.db == nil {
		return Session{}, false, errors.New("calls: db is nil")
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, queryMarkEnded, id, endedAt, string(StatusEnded), string(StatusPending)))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, err
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	return current, false, nil
}

func (r *PostgresRepo) ListByReceiver(ctx context.Context, receiverID string, status Status) ([]Session, error) {
	if r.db == nil {
		return nil, errors.New("calls: db is nil")
	}
	rows, err := r.db.QueryContext(ctx, queryListByReceiver, receiverID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
