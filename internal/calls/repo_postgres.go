package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRegistry implements Registry on the call_records table.
//
// Assumed schema highlights:
// - UNIQUE (call_id)
// - state stored as text, notes default '', timestamps with time zone
//
// The create race between concurrent webhook workers is resolved by
// INSERT ... ON CONFLICT DO NOTHING followed by a re-read.
type PostgresRegistry struct {
	db *sql.DB
}

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

const callColumns = `
call_id, extension, direction, caller_number, called_number,
normalized_phone, state,
contact_id, contact_name, contact_company, contact_email, contact_type,
start_time, end_time, duration_seconds,
popup_sent, call_history_count, recording_url, notes,
created_at, updated_at
`

// stateRankExpr ranks the stored state inside SQL so a transition is a
// single atomic UPDATE even under concurrent deliveries.
const stateRankExpr = `
CASE state
  WHEN 'initiated' THEN 0
  WHEN 'ringing' THEN 1
  WHEN 'connected' THEN 2
  ELSE 3
END
`

func (r *PostgresRegistry) GetOrCreate(ctx context.Context, callID string, init Initial) (CallRecord, bool, error) {
	if callID == "" {
		return CallRecord{}, false, errors.New("call_id required")
	}

	const q = `
INSERT INTO call_records
  (call_id, extension, direction, caller_number, called_number, state, start_time)
VALUES
  ($1, $2, $3, $4, $5, 'initiated', $6)
ON CONFLICT (call_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		callID,
		init.Extension,
		string(init.Direction),
		init.CallerNumber,
		init.CalledNumber,
		init.StartTime,
	)
	if err != nil {
		return CallRecord{}, false, fmt.Errorf("insert call record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return CallRecord{}, false, err
	}
	created := n > 0

	rec, err := r.Find(ctx, callID)
	if err != nil {
		return CallRecord{}, false, err
	}
	return rec, created, nil
}

func (r *PostgresRegistry) Transition(ctx context.Context, callID string, newState State, m Merge) (CallRecord, error) {
	// State only advances when the new rank is strictly higher and the
	// stored state is not already terminal (first terminal wins). Merge
	// fields land regardless.
	q := `
UPDATE call_records SET
  state = CASE
    WHEN $2 > ` + stateRankExpr + ` AND state NOT IN ('completed','failed','busy','no_answer')
    THEN $3 ELSE state END,
  end_time = COALESCE($4, end_time),
  duration_seconds = COALESCE($5, duration_seconds),
  recording_url = CASE WHEN $6 <> '' THEN $6 ELSE recording_url END,
  notes = CASE
    WHEN $7 = '' THEN notes
    WHEN notes = '' THEN $7
    ELSE notes || E'\n' || $7 END,
  updated_at = now()
WHERE call_id = $1
RETURNING ` + callColumns

	row := r.db.QueryRowContext(ctx, q,
		callID,
		newState.Rank(),
		string(newState),
		m.EndTime,
		m.DurationSeconds,
		m.RecordingURL,
		m.AppendNote,
	)
	rec, err := scanCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, fmt.Errorf("transition call %s: %w", callID, err)
	}
	return rec, nil
}

func (r *PostgresRegistry) Find(ctx context.Context, callID string) (CallRecord, error) {
	q := `SELECT ` + callColumns + ` FROM call_records WHERE call_id = $1`

	rec, err := scanCall(r.db.QueryRowContext(ctx, q, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return rec, nil
}

func (r *PostgresRegistry) SetEnrichment(ctx context.Context, callID, normalizedPhone string, contact *ContactSnapshot, historyCount int) error {
	c := ContactSnapshot{}
	if contact != nil {
		c = *contact
	}

	const q = `
UPDATE call_records SET
  normalized_phone = $2,
  contact_id = $3,
  contact_name = $4,
  contact_company = $5,
  contact_email = $6,
  contact_type = $7,
  call_history_count = $8,
  updated_at = now()
WHERE call_id = $1
`
	res, err := r.db.ExecContext(ctx, q, callID, normalizedPhone, c.ID, c.Name, c.Company, c.Email, c.Type, historyCount)
	if err != nil {
		return fmt.Errorf("enrich call %s: %w", callID, err)
	}
	return requireRow(res)
}

func (r *PostgresRegistry) MarkPopupSent(ctx context.Context, callID string) error {
	const q = `UPDATE call_records SET popup_sent = TRUE, updated_at = now() WHERE call_id = $1`
	res, err := r.db.ExecContext(ctx, q, callID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRegistry) CountCompletedByPhone(ctx context.Context, normalizedPhone string) (int, error) {
	if normalizedPhone == "" {
		return 0, nil
	}
	const q = `SELECT COUNT(*) FROM call_records WHERE normalized_phone = $1 AND state = 'completed'`
	var n int
	if err := r.db.QueryRowContext(ctx, q, normalizedPhone).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRegistry) ListRecent(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + callColumns + ` FROM call_records ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0, limit)
	for rows.Next() {
		rec, err := scanCall(rows)
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

func scanCall(row rowScanner) (CallRecord, error) {
	var rec CallRecord
	err := row.Scan(
		&rec.CallID,
		&rec.Extension,
		&rec.Direction,
		&rec.CallerNumber,
		&rec.CalledNumber,
		&rec.NormalizedPhone,
		&rec.State,
		&rec.ContactID,
		&rec.ContactName,
		&rec.ContactCompany,
		&rec.ContactEmail,
		&rec.ContactType,
		&rec.StartTime,
		&rec.EndTime,
		&rec.DurationSeconds,
		&rec.PopupSent,
		&rec.CallHistoryCount,
		&rec.RecordingURL,
		&rec.Notes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
