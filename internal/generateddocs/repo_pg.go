package generateddocs

import (
	"context"
	"database/sql"
	"errors"
)

const maxListLimit = 50

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a generation record.
func (r *PGRepo) Create(ctx context.Context, rec GenerationRecord) error {
	const query = `
INSERT INTO cv_generations (
    id, session_id, user_id, created_at, job_description, language, template, cv_key, letter_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.UserID,
		rec.CreatedAt,
		rec.JobDescription,
		rec.Language,
		rec.Template,
		nullable(rec.CVKey),
		nullable(rec.LetterKey),
	)
	return err
}

// GetBySession returns the record for a session id.
func (r *PGRepo) GetBySession(ctx context.Context, sessionID string) (GenerationRecord, error) {
	const query = `
SELECT id, session_id, user_id, created_at, job_description, language, template, cv_key, letter_key
FROM cv_generations
WHERE session_id = $1
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GenerationRecord{}, ErrNotFound
		}
		return GenerationRecord{}, err
	}
	return rec, nil
}

// ListByUser lists records ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]GenerationRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, session_id, user_id, created_at, job_description, language, template, cv_key, letter_key
FROM cv_generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GenerationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteByUser removes every record owned by userID.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cv_generations WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Reassign moves records from one owner to another.
func (r *PGRepo) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE cv_generations SET user_id = $2 WHERE user_id = $1`, fromUserID, toUserID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (GenerationRecord, error) {
	var (
		rec       GenerationRecord
		cvKey     sql.NullString
		letterKey sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.UserID,
		&rec.CreatedAt,
		&rec.JobDescription,
		&rec.Language,
		&rec.Template,
		&cvKey,
		&letterKey,
	); err != nil {
		return GenerationRecord{}, err
	}
	rec.CVKey = cvKey.String
	rec.LetterKey = letterKey.String
	return rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
