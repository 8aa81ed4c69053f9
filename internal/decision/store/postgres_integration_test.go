//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"railclaim/internal/compensation"
	"railclaim/internal/decision"
	"railclaim/internal/decision/store"
	"railclaim/internal/platform/postgres"
	"railclaim/pkg/domain"
	"railclaim/pkg/platform/audit"
	auditpostgres "railclaim/pkg/platform/audit/store/postgres"
	"railclaim/pkg/platform/sentinel"
	txcontext "railclaim/pkg/platform/tx"
	"railclaim/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.pg.DB, postgres.Up))
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "evaluations", "audit_events"))
}

func record(fingerprint string) *decision.Record {
	delay := 95
	return &decision.Record{
		ID:             domain.NewEvaluationID(),
		Fingerprint:    fingerprint,
		CatalogVersion: "2025-06-01",
		EvaluatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Outcome: decision.Outcome{
			DelayMinutes: &delay,
			Compensation: compensation.Result{
				DelayMinutes: delay,
				Percent:      25,
				Source:       compensation.SourceEU,
				Notes:        []string{},
			},
		},
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	rec := record("fp-pg")
	s.Require().NoError(s.store.Save(ctx, rec))

	got, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.Fingerprint, got.Fingerprint)
	s.Equal(rec.EvaluatedAt, got.EvaluatedAt)
	s.Equal(25, got.Compensation.Percent)
	s.Require().NotNil(got.DelayMinutes)
	s.Equal(95, *got.DelayMinutes)

	byFP, err := s.store.FindByFingerprint(ctx, "fp-pg")
	s.Require().NoError(err)
	s.Equal(rec.ID, byFP.ID)
}

func (s *PostgresStoreSuite) TestDuplicateFingerprint() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, record("fp-dup")))
	s.ErrorIs(s.store.Save(ctx, record("fp-dup")), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), domain.NewEvaluationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTransactionCommitsRecordWithAuditEvent() {
	ctx := context.Background()
	events := auditpostgres.New(s.pg.DB)
	rec := record("fp-tx")

	err := txcontext.Run(ctx, s.pg.DB, func(ctx context.Context) error {
		if err := s.store.Save(ctx, rec); err != nil {
			return err
		}
		return events.Append(ctx, audit.Event{
			Action:    string(audit.EventClaimEvaluated),
			Subject:   rec.ID.String(),
			Timestamp: time.Now().UTC(),
		})
	})
	s.Require().NoError(err)

	_, err = s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	listed, err := events.ListBySubject(ctx, rec.ID.String())
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *PostgresStoreSuite) TestTransactionRollsBackOnError() {
	ctx := context.Background()
	rec := record("fp-rollback")
	boom := errors.New("audit sink rejected event")

	err := txcontext.Run(ctx, s.pg.DB, func(ctx context.Context) error {
		s.Require().NoError(s.store.Save(ctx, rec))
		_, err := s.store.FindByFingerprint(ctx, "fp-rollback")
		s.Require().NoError(err, "visible inside the transaction")
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindByID(ctx, rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
