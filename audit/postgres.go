package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore implements Store backed by the decisions table
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects with the lib/pq driver and pings the database
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Add(ctx context.Context, r *Record) error {
	prepare(r)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, kind, user_id, mode, credit_score, risk_level, approved,
			max_loan_amount, positive_factors, negative_factors, narrative, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.Kind, r.UserID, r.Mode, r.CreditScore, r.RiskLevel, r.Approved,
		r.MaxLoanAmount, pq.Array(nonNil(r.PositiveFactors)), pq.Array(nonNil(r.NegativeFactors)), r.Narrative, r.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// nonNil keeps pq.Array from sending NULL for the NOT NULL array columns
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const selectColumns = `id, kind, user_id, mode, credit_score, risk_level, approved,
	max_loan_amount, positive_factors, negative_factors, narrative, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID,
		&r.Kind,
		&r.UserID,
		&r.Mode,
		&r.CreditScore,
		&r.RiskLevel,
		&r.Approved,
		&r.MaxLoanAmount,
		pq.Array(&r.PositiveFactors),
		pq.Array(&r.NegativeFactors),
		&r.Narrative,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM decisions WHERE id = $1`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM decisions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return records, nil
}
