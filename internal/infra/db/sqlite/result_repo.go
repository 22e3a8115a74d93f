package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/exewatch/internal/common"
	domain "github.com/bryanwahyu/exewatch/internal/domain/results"
)

type ResultRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*ResultRepository)(nil)

func NewResultRepository(d *DB) *ResultRepository {
	return &ResultRepository{db: d.db}
}

func (r *ResultRepository) Create(ctx context.Context, res *domain.Result) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	const q = `
INSERT INTO results (id, session_id, filename, path, status, severity, detected_at, type, hash, notes, reviewed)
VALUES (?,?,?,?,?,?,?,?,?,?,?);
`
	reviewed := 0
	if res.Reviewed {
		reviewed = 1
	}
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.SessionID, res.Filename, res.Path,
		string(res.Status), string(res.Severity), res.DetectedAt.UTC().UnixNano(),
		res.Type, res.Hash, res.Notes, reviewed,
	)
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// List pages results ordered by detection time descending. Filters are ANDed
// onto the WHERE clause only when set.
func (r *ResultRepository) List(ctx context.Context, f domain.Filter, page, limit int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	where := " WHERE 1=1"
	args := []any{}
	if f.SessionID != "" {
		where += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Severity != "" {
		where += " AND severity = ?"
		args = append(args, string(f.Severity))
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, string(f.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results"+where, args...).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("counting results: %w", err)
	}

	query := `
SELECT id, session_id, filename, path, status, severity, detected_at, type, hash, notes, reviewed, reviewed_at
FROM results` + where + `
ORDER BY detected_at DESC
LIMIT ? OFFSET ?;
`
	args = append(args, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page{}, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	items := []*domain.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return domain.Page{}, fmt.Errorf("scanning result row: %w", err)
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, fmt.Errorf("iterating result rows: %w", err)
	}

	return domain.Page{
		Results: items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Critical returns the unreviewed HIGH/CRITICAL queue, newest first.
func (r *ResultRepository) Critical(ctx context.Context, sessionID string) ([]*domain.Result, error) {
	query := `
SELECT id, session_id, filename, path, status, severity, detected_at, type, hash, notes, reviewed, reviewed_at
FROM results
WHERE severity IN ('HIGH','CRITICAL') AND reviewed = 0`
	args := []any{}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY detected_at DESC;"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying critical results: %w", err)
	}
	defer rows.Close()

	out := []*domain.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ResultRepository) MarkReviewed(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE results
SET reviewed = 1, reviewed_at = ?
WHERE id = ?;
`
	res, err := r.db.ExecContext(ctx, q, at.UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("marking result reviewed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: result %s", common.ErrNotFound, id)
	}
	return nil
}

func scanResult(row rowScanner) (*domain.Result, error) {
	var (
		res        domain.Result
		status     string
		severity   string
		detectedAt int64
		reviewed   int
		reviewedAt sql.NullInt64
	)
	if err := row.Scan(
		&res.ID, &res.SessionID, &res.Filename, &res.Path,
		&status, &severity, &detectedAt,
		&res.Type, &res.Hash, &res.Notes, &reviewed, &reviewedAt,
	); err != nil {
		return nil, err
	}
	res.Status = domain.Status(status)
	res.Severity = domain.Severity(severity)
	res.DetectedAt = time.Unix(0, detectedAt).UTC()
	res.Reviewed = reviewed == 1
	if reviewedAt.Valid {
		t := time.Unix(0, reviewedAt.Int64).UTC()
		res.ReviewedAt = &t
	}
	return &res, nil
}
