package popup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore implements Store on the popup_records table.
//
// Assumed schema highlights:
// - UNIQUE (call_id, zoho_user_id)
// - payload stored as JSONB, sent_at defaults to now()
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const popupColumns = `
call_id, zoho_user_id, extension, payload, status,
sent_at, response, response_time_ms, retry_count, error_message
`

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	const q = `
INSERT INTO popup_records
  (call_id, zoho_user_id, extension, payload, status)
VALUES
  ($1, $2, $3, $4, $5)
RETURNING ` + popupColumns

	row := s.db.QueryRowContext(ctx, q,
		rec.CallID,
		rec.ZohoUserID,
		rec.Extension,
		[]byte(rec.Payload),
		string(rec.Status),
	)
	out, err := scanPopup(row)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on (call_id, zoho_user_id)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("insert popup record: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, callID, zohoUserID string) (Record, error) {
	q := `SELECT ` + popupColumns + ` FROM popup_records WHERE call_id = $1 AND zoho_user_id = $2`

	rec, err := scanPopup(s.db.QueryRowContext(ctx, q, callID, zohoUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	const q = `
UPDATE popup_records SET
  status = $3,
  response = $4,
  response_time_ms = $5,
  retry_count = $6,
  error_message = $7
WHERE call_id = $1 AND zoho_user_id = $2
`
	res, err := s.db.ExecContext(ctx, q,
		rec.CallID,
		rec.ZohoUserID,
		string(rec.Status),
		rec.Response,
		rec.ResponseTimeMS,
		rec.RetryCount,
		rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update popup record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByCallAndStatus(ctx context.Context, callID string, status Status) ([]Record, error) {
	q := `SELECT ` + popupColumns + ` FROM popup_records WHERE call_id = $1 AND status = $2`
	return s.list(ctx, q, callID, string(status))
}

func (s *PostgresStore) ListRetryable(ctx context.Context, maxRetries, limit int) ([]Record, error) {
	q := `
SELECT ` + popupColumns + `
FROM popup_records
WHERE status = 'retry' AND retry_count <= $1
ORDER BY sent_at
LIMIT $2
`
	return s.list(ctx, q, maxRetries, limit)
}

func (s *PostgresStore) CountByStatusSince(ctx context.Context, since time.Time) (map[Status]int, error) {
	const q = `
SELECT status, COUNT(*)
FROM popup_records
WHERE sent_at >= $1
GROUP BY status
`
	rows, err := s.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[Status(st)] = n
	}
	return out, rows.Err()
}

func (s *PostgresStore) AvgResponseTimeSince(ctx context.Context, since time.Time) (float64, error) {
	const q = `
SELECT COALESCE(AVG(response_time_ms), 0)
FROM popup_records
WHERE sent_at >= $1 AND response_time_ms IS NOT NULL
`
	var avg float64
	if err := s.db.QueryRowContext(ctx, q, since).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func (s *PostgresStore) list(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanPopup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPopup(row rowScanner) (Record, error) {
	var rec Record
	var payload []byte
	err := row.Scan(
		&rec.CallID,
		&rec.ZohoUserID,
		&rec.Extension,
		&payload,
		&rec.Status,
		&rec.SentAt,
		&rec.Response,
		&rec.ResponseTimeMS,
		&rec.RetryCount,
		&rec.ErrorMessage,
	)
	rec.Payload = payload
	return rec, err
}
