package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessment_records (
	id                 UUID PRIMARY KEY,
	user_id            TEXT NOT NULL,
	assessment_type    TEXT NOT NULL,
	answers            JSONB NOT NULL,
	scores             JSONB NOT NULL,
	aggregate_score    DOUBLE PRECISION NOT NULL,
	risk_tier          TEXT NOT NULL,
	risk_description   TEXT NOT NULL DEFAULT '',
	recommendations    TEXT[] NOT NULL DEFAULT '{}',
	dimensions         JSONB,
	dominant_dimension TEXT,
	assessment_date    TIMESTAMPTZ NOT NULL,
	is_latest          BOOLEAN NOT NULL DEFAULT false,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS assessment_records_one_latest
	ON assessment_records (user_id, assessment_type) WHERE is_latest;
CREATE INDEX IF NOT EXISTS assessment_records_history
	ON assessment_records (user_id, assessment_type, assessment_date DESC);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the records table and its indexes if missing. The
// partial unique index enforces the single-latest invariant in the database.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const recordColumns = `id, user_id, assessment_type, answers,
	scores, aggregate_score, risk_tier, risk_description, recommendations,
	dimensions, dominant_dimension,
	assessment_date, is_latest, created_at, updated_at`

// lockKey serialises latest-flag transitions for one (user, type) pair for
// the rest of the transaction.
func lockKey(ctx context.Context, tx pgx.Tx, userID, assessmentType string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID+"\x00"+assessmentType)
	if err != nil {
		return fmt.Errorf("lock %s/%s: %w", userID, assessmentType, err)
	}
	return nil
}

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *AssessmentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	answersJSON, scoresJSON, dimensionsJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockKey(ctx, tx, rec.UserID, rec.AssessmentType); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE assessment_records SET is_latest = false, updated_at = NOW()
		WHERE user_id = $1 AND assessment_type = $2 AND is_latest`,
		rec.UserID, rec.AssessmentType,
	); err != nil {
		return fmt.Errorf("demote latest: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO assessment_records (id, user_id, assessment_type, answers,
			scores, aggregate_score, risk_tier, risk_description, recommendations,
			dimensions, dominant_dimension, assessment_date, is_latest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true)
		RETURNING created_at, updated_at`,
		rec.ID, rec.UserID, rec.AssessmentType, answersJSON,
		scoresJSON, rec.AggregateScore, rec.RiskTier, rec.RiskDescription, nonNil(rec.Recommendations),
		dimensionsJSON, nullString(rec.DominantDimension), rec.AssessmentDate,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	rec.IsLatest = true
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM assessment_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *PostgresStore) GetLatestRecord(ctx context.Context, userID, assessmentType string) (*AssessmentRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM assessment_records
		WHERE user_id = $1 AND assessment_type = $2 AND is_latest`, userID, assessmentType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*AssessmentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM assessment_records
		WHERE user_id = $1 AND assessment_type = $2
		ORDER BY assessment_date DESC, created_at DESC`
	args := []interface{}{filter.UserID, filter.AssessmentType}
	n := 2

	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AssessmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CountRecords(ctx context.Context, userID, assessmentType string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM assessment_records
		WHERE user_id = $1 AND assessment_type = $2`, userID, assessmentType,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, rec *AssessmentRecord) error {
	answersJSON, scoresJSON, dimensionsJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockKey(ctx, tx, rec.UserID, rec.AssessmentType); err != nil {
		return err
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM assessment_records
		WHERE id = $1 AND user_id = $2 AND assessment_type = $3
		FOR UPDATE`, rec.ID, rec.UserID, rec.AssessmentType,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE assessment_records SET is_latest = false, updated_at = NOW()
		WHERE user_id = $1 AND assessment_type = $2 AND is_latest AND id <> $3`,
		rec.UserID, rec.AssessmentType, rec.ID,
	); err != nil {
		return fmt.Errorf("demote latest: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE assessment_records SET
			answers = $2, scores = $3, aggregate_score = $4,
			risk_tier = $5, risk_description = $6, recommendations = $7,
			dimensions = $8, dominant_dimension = $9,
			assessment_date = $10, is_latest = true, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		rec.ID, answersJSON, scoresJSON, rec.AggregateScore,
		rec.RiskTier, rec.RiskDescription, nonNil(rec.Recommendations),
		dimensionsJSON, nullString(rec.DominantDimension),
		rec.AssessmentDate,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	rec.IsLatest = true
	return nil
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, id uuid.UUID, userID string) (*AssessmentRecord, error) {
	var assessmentType string
	err := s.pool.QueryRow(ctx, `
		SELECT assessment_type FROM assessment_records WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&assessmentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockKey(ctx, tx, userID, assessmentType); err != nil {
		return nil, err
	}

	var wasLatest bool
	err = tx.QueryRow(ctx, `
		DELETE FROM assessment_records WHERE id = $1 AND user_id = $2
		RETURNING is_latest`, id, userID,
	).Scan(&wasLatest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}

	var promoted *AssessmentRecord
	if wasLatest {
		promoted, err = scanRecord(tx.QueryRow(ctx, `
			UPDATE assessment_records SET is_latest = true, updated_at = NOW()
			WHERE id = (
				SELECT id FROM assessment_records
				WHERE user_id = $1 AND assessment_type = $2
				ORDER BY assessment_date DESC, created_at DESC
				LIMIT 1
			)
			RETURNING `+recordColumns, userID, assessmentType))
		if errors.Is(err, pgx.ErrNoRows) {
			promoted, err = nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("promote next latest: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return promoted, nil
}

func marshalRecord(rec *AssessmentRecord) (answers, scores, dimensions []byte, err error) {
	if answers, err = json.Marshal(rec.Answers); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	if scores, err = json.Marshal(rec.Scores); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal scores: %w", err)
	}
	if rec.Dimensions != nil {
		if dimensions, err = json.Marshal(rec.Dimensions); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal dimensions: %w", err)
		}
	}
	return answers, scores, dimensions, nil
}

func scanRecord(row pgx.Row) (*AssessmentRecord, error) {
	rec := &AssessmentRecord{}
	var answersJSON, scoresJSON, dimensionsJSON []byte
	var dominant sql.NullString
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.AssessmentType, &answersJSON,
		&scoresJSON, &rec.AggregateScore, &rec.RiskTier, &rec.RiskDescription, &rec.Recommendations,
		&dimensionsJSON, &dominant,
		&rec.AssessmentDate, &rec.IsLatest, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dominant.Valid {
		rec.DominantDimension = dominant.String
	}
	if answersJSON != nil {
		if err := json.Unmarshal(answersJSON, &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", rec.ID, err)
		}
	}
	if scoresJSON != nil {
		_ = json.Unmarshal(scoresJSON, &rec.Scores)
	}
	if dimensionsJSON != nil {
		_ = json.Unmarshal(dimensionsJSON, &rec.Dimensions)
	}
	return rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
