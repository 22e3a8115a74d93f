package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/exewatch/internal/domain/logs"
)

type LogRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*LogRepository)(nil)

func NewLogRepository(d *DB) *LogRepository {
	return &LogRepository{db: d.db}
}

func (r *LogRepository) Create(ctx context.Context, l *domain.Log) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	contextJSON := ""
	if len(l.Context) > 0 {
		data, err := json.Marshal(l.Context)
		if err != nil {
			return fmt.Errorf("marshaling log context: %w", err)
		}
		contextJSON = string(data)
	}
	const q = `
INSERT INTO logs (id, session_id, level, message, timestamp, context)
VALUES (?,?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.SessionID, string(l.Level), l.Message, l.Timestamp.UTC().UnixNano(), contextJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting log: %w", err)
	}
	return nil
}

// List pages logs ordered by timestamp descending.
func (r *LogRepository) List(ctx context.Context, f domain.Filter, page, limit int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []any{}
	if f.SessionID != "" {
		where += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Level != "" {
		where += " AND level = ?"
		args = append(args, string(f.Level))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs"+where, args...).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("counting logs: %w", err)
	}

	query := `
SELECT id, session_id, level, message, timestamp, context
FROM logs` + where + `
ORDER BY timestamp DESC
LIMIT ? OFFSET ?;
`
	args = append(args, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page{}, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	items := []*domain.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return domain.Page{}, fmt.Errorf("scanning log row: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, fmt.Errorf("iterating log rows: %w", err)
	}

	return domain.Page{
		Logs:  items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func scanLog(row rowScanner) (*domain.Log, error) {
	var (
		l           domain.Log
		level       string
		timestamp   int64
		contextJSON sql.NullString
	)
	if err := row.Scan(&l.ID, &l.SessionID, &level, &l.Message, &timestamp, &contextJSON); err != nil {
		return nil, err
	}
	l.Level = domain.Level(level)
	l.Timestamp = time.Unix(0, timestamp).UTC()
	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &l.Context); err != nil {
			return nil, fmt.Errorf("unmarshaling log context: %w", err)
		}
	}
	return &l, nil
}
