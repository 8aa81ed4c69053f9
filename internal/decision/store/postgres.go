package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"railclaim/internal/decision"
	"railclaim/pkg/domain"
	"railclaim/pkg/platform/sentinel"
	txcontext "railclaim/pkg/platform/tx"
)

// Postgres stores records in the evaluations table, the outcome as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Save inserts the record. A concurrent evaluation that already stored the
// same fingerprint yields sentinel.ErrConflict.
func (s *Postgres) Save(ctx context.Context, rec *decision.Record) error {
	outcome, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO evaluations (id, fingerprint, catalog_version, evaluated_at, outcome)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO NOTHING
	`, uuid.UUID(rec.ID), rec.Fingerprint, rec.CatalogVersion, rec.EvaluatedAt, outcome)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const selectRecord = `
	SELECT id, fingerprint, catalog_version, evaluated_at, outcome
	FROM evaluations
`

func (s *Postgres) FindByID(ctx context.Context, id domain.EvaluationID) (*decision.Record, error) {
	return s.scan(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectRecord+`WHERE id = $1`, uuid.UUID(id)))
}

func (s *Postgres) FindByFingerprint(ctx context.Context, fingerprint string) (*decision.Record, error) {
	return s.scan(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectRecord+`WHERE fingerprint = $1`, fingerprint))
}

func (s *Postgres) scan(row *sql.Row) (*decision.Record, error) {
	var (
		rec     decision.Record
		id      uuid.UUID
		outcome []byte
	)
	err := row.Scan(&id, &rec.Fingerprint, &rec.CatalogVersion, &rec.EvaluatedAt, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}
	if err := json.Unmarshal(outcome, &rec.Outcome); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	rec.ID = domain.EvaluationID(id)
	rec.EvaluatedAt = rec.EvaluatedAt.UTC()
	return &rec, nil
}
