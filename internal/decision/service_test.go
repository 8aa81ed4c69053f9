package decision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"railclaim/internal/catalog"
	"railclaim/internal/catalog/catalogtest"
	"railclaim/internal/decision/metrics"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
	"railclaim/pkg/platform/audit"
	"railclaim/pkg/platform/sentinel"
	"railclaim/pkg/requestcontext"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]Record
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}}
}

func (f *fakeStore) Save(_ context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.records[rec.Fingerprint]; ok {
		return sentinel.ErrConflict
	}
	f.records[rec.Fingerprint] = *rec
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id domain.EvaluationID) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (f *fakeStore) FindByFingerprint(_ context.Context, fp string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[fp]; ok {
		return &r, nil
	}
	return nil, sentinel.ErrNotFound
}

type fakeAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (f *fakeAudit) Emit(_ context.Context, e audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type nilCatalog struct{}

func (nilCatalog) Current() *catalog.Snapshot { return nil }

type ServiceSuite struct {
	suite.Suite
	store   *fakeStore
	audit   *fakeAudit
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = newFakeStore()
	s.audit = &fakeAudit{}
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = NewService(catalogtest.Store(s.T()), s.store,
		WithAudit(s.audit),
		WithMetrics(s.metrics),
		WithBatch(3, 2),
	)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

// =============================================================================
// Evaluate
// =============================================================================

func (s *ServiceSuite) TestEvaluate() {
	s.Run("stores a new record and emits claim_evaluated", func() {
		rec, replayed, err := s.service.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 125)})
		s.Require().NoError(err)
		s.False(replayed)
		s.False(rec.ID.IsNil())
		s.NotEmpty(rec.Fingerprint)
		s.Equal(catalogtest.Seed(s.T()).Version(), rec.CatalogVersion)
		s.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), rec.EvaluatedAt)
		s.Equal("60.00 EUR", rec.Compensation.Amount.String())

		s.Equal([]string{string(audit.EventClaimEvaluated)}, s.audit.actions())
		s.Equal("45.00", s.audit.events[0].NetAmount)
		s.Equal("eu", s.audit.events[0].Decision)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues("eu", "long_domestic")))
	})

	s.Run("same request replays the stored record", func() {
		req := Request{Journey: singleLeg("DE", "DB", "120.00", 125)}
		first, _, err := s.service.Evaluate(s.ctx, req)
		s.Require().NoError(err)

		second, replayed, err := s.service.Evaluate(s.ctx, req)
		s.Require().NoError(err)
		s.True(replayed)
		s.Equal(first.ID, second.ID)
		s.GreaterOrEqual(testutil.ToFloat64(s.metrics.Replays), float64(1))
		s.Contains(s.audit.actions(), string(audit.EventEvaluationReplayed))
	})

	s.Run("different input gives a different record", func() {
		a, _, err := s.service.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 125)})
		s.Require().NoError(err)
		b, replayed, err := s.service.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 130)})
		s.Require().NoError(err)
		s.False(replayed)
		s.NotEqual(a.Fingerprint, b.Fingerprint)
	})
}

func (s *ServiceSuite) TestEvaluateErrors() {
	s.Run("invalid input is a validation error", func() {
		_, _, err := s.service.Evaluate(s.ctx, Request{
			Journey: singleLeg("DE", "DB", "120.00", 125),
			Compute: Compute{DelayMinutes: intPtr(-1)},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing catalog is unavailable", func() {
		svc := NewService(nilCatalog{}, s.store)
		_, _, err := svc.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 125)})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("store failure is internal", func() {
		st := newFakeStore()
		st.saveErr = errors.New("disk full")
		svc := NewService(catalogtest.Store(s.T()), st)
		_, _, err := svc.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 125)})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("audit failure does not fail the evaluation", func() {
		failing := &fakeAudit{err: errors.New("sink down")}
		svc := NewService(catalogtest.Store(s.T()), newFakeStore(), WithAudit(failing))
		rec, _, err := svc.Evaluate(s.ctx, Request{Journey: singleLeg("DE", "DB", "120.00", 125)})
		s.Require().NoError(err)
		s.NotNil(rec)
	})
}

// =============================================================================
// Batch
// =============================================================================

func (s *ServiceSuite) TestEvaluateBatch() {
	s.Run("keeps order and reports item errors", func() {
		items, err := s.service.EvaluateBatch(s.ctx, []Request{
			{Journey: singleLeg("DE", "DB", "120.00", 125)},
			{Journey: singleLeg("DE", "DB", "120.00", 10), Compute: Compute{DelayMinutes: intPtr(-3)}},
			{Journey: singleLeg("NL", "NS", "100.00", 65)},
		})
		s.Require().NoError(err)
		s.Require().Len(items, 3)

		s.Require().NoError(items[0].Err)
		s.Equal(50, items[0].Record.Compensation.Percent)

		s.True(dErrors.HasCode(items[1].Err, dErrors.CodeValidation))
		s.Nil(items[1].Record)

		s.Require().NoError(items[2].Err)
		s.Equal("national_override", string(items[2].Record.Compensation.Source))
	})

	s.Run("duplicates in one batch share a record", func() {
		req := Request{Journey: singleLeg("ES", "Renfe", "60.00", 95)}
		items, err := s.service.EvaluateBatch(s.ctx, []Request{req, req})
		s.Require().NoError(err)
		s.Require().NoError(items[0].Err)
		s.Require().NoError(items[1].Err)
		s.Equal(items[0].Record.ID, items[1].Record.ID)
		s.True(items[0].Replayed != items[1].Replayed, "exactly one item is a replay")
	})

	s.Run("empty batch", func() {
		_, err := s.service.EvaluateBatch(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("oversized batch", func() {
		req := Request{Journey: singleLeg("DE", "DB", "120.00", 125)}
		_, err := s.service.EvaluateBatch(s.ctx, []Request{req, req, req, req})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Get
// =============================================================================

func (s *ServiceSuite) TestGet() {
	rec, _, err := s.service.Evaluate(s.ctx, Request{Journey: singleLeg("IT", "Trenitalia", "40.00", 45)})
	s.Require().NoError(err)

	got, err := s.service.Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.Fingerprint, got.Fingerprint)

	_, err = s.service.Get(s.ctx, domain.NewEvaluationID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
