package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/exewatch/internal/common"
	domain "github.com/bryanwahyu/exewatch/internal/domain/sessions"
)

type SessionRepository struct {
	db *sql.DB
}

// Compile-time check that SessionRepository implements the port.
var _ domain.Repository = (*SessionRepository)(nil)

func NewSessionRepository(d *DB) *SessionRepository {
	return &SessionRepository{db: d.db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	const q = `
INSERT INTO sessions (id, client_label, status, started_at, total_files, suspect_count, critical_count)
VALUES (?,?,?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.ClientLabel, string(s.Status), s.StartedAt.UTC().UnixNano(),
		s.TotalFiles, s.SuspectCount, s.CriticalCount,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	const q = `
SELECT id, client_label, status, started_at, finished_at, total_files, suspect_count, critical_count
FROM sessions
WHERE id=? LIMIT 1;
`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	return s, err
}

func (r *SessionRepository) Latest(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, client_label, status, started_at, finished_at, total_files, suspect_count, critical_count
FROM sessions
ORDER BY started_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Finish writes the terminal status, finish timestamp and counters in one
// statement; repeated calls simply overwrite.
func (r *SessionRepository) Finish(ctx context.Context, id string, status domain.Status, finishedAt time.Time, sum domain.Summary) error {
	const q = `
UPDATE sessions
SET status=?, finished_at=?, total_files=?, suspect_count=?, critical_count=?
WHERE id=?;
`
	res, err := r.db.ExecContext(ctx, q,
		string(status), finishedAt.UTC().UnixNano(),
		sum.TotalFiles, sum.SuspectCount, sum.CriticalCount, id,
	)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s          domain.Session
		status     string
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(
		&s.ID, &s.ClientLabel, &status, &startedAt, &finishedAt,
		&s.TotalFiles, &s.SuspectCount, &s.CriticalCount,
	); err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	s.StartedAt = time.Unix(0, startedAt).UTC()
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64).UTC()
		s.FinishedAt = &t
	}
	return &s, nil
}
