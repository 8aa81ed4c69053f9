package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"railclaim/internal/claim"
	"railclaim/internal/decision/metrics"
	"railclaim/internal/decision/ports"
	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
	"railclaim/pkg/platform/audit"
	"railclaim/pkg/platform/sentinel"
	"railclaim/pkg/requestcontext"
)

const (
	defaultBatchLimit       = 100
	defaultBatchConcurrency = 8
)

// TxRunner runs fn in a transaction carried by the context it passes on.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates evaluations: it pins a catalog snapshot, replays
// known requests by fingerprint, runs the pure pipeline, persists the
// record and emits the audit event. The rules themselves live in Run.
type Service struct {
	catalog     ports.CatalogPort
	store       Store
	audit       ports.AuditPort
	rates       claim.RateProvider
	policy      Policy
	tx          TxRunner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	batchLimit  int
	concurrency int
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit enables audit events. Emit failures are logged, never returned.
func WithAudit(a ports.AuditPort) Option {
	return func(s *Service) {
		s.audit = a
	}
}

func WithRates(r claim.RateProvider) Option {
	return func(s *Service) {
		s.rates = r
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithTx makes the record and its audit event commit together.
func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithBatch bounds batch size and fan-out.
func WithBatch(limit, concurrency int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.batchLimit = limit
		}
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

func NewService(catalog ports.CatalogPort, store Store, opts ...Option) *Service {
	s := &Service{
		catalog:     catalog,
		store:       store,
		rates:       claim.DefaultRates(),
		policy:      DefaultPolicy(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("railclaim/decision"),
		batchLimit:  defaultBatchLimit,
		concurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the record for req. replayed is true when an earlier
// evaluation with the same fingerprint answered it.
func (s *Service) Evaluate(ctx context.Context, req Request) (rec *Record, replayed bool, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "decision.Evaluate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	snap := s.catalog.Current()
	if snap == nil {
		return nil, false, dErrors.New(dErrors.CodeUnavailable, "catalog not loaded")
	}
	span.SetAttributes(attribute.String("catalog.version", snap.Version()))

	stageStart := time.Now()
	fingerprint, err := Fingerprint(req, snap.Version(), s.policy)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveStage("fingerprint", time.Since(stageStart))

	existing, err := s.store.FindByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		s.replayed(ctx, existing)
		span.SetAttributes(attribute.Bool("evaluation.replayed", true))
		return existing, true, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up evaluation")
	}

	stageStart = time.Now()
	_, pipelineSpan := s.tracer.Start(ctx, "decision.Run")
	outcome := Run(req, snap, s.rates, s.policy)
	pipelineSpan.End()
	s.metrics.ObserveStage("pipeline", time.Since(stageStart))

	rec = &Record{
		ID:             domain.NewEvaluationID(),
		Fingerprint:    fingerprint,
		CatalogVersion: snap.Version(),
		EvaluatedAt:    requestcontext.Now(ctx).UTC(),
		Outcome:        outcome,
	}

	stageStart = time.Now()
	err = s.persist(ctx, rec)
	if errors.Is(err, sentinel.ErrConflict) {
		// A concurrent request with the same fingerprint won the insert.
		existing, findErr := s.store.FindByFingerprint(ctx, fingerprint)
		if findErr != nil {
			return nil, false, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load concurrent evaluation")
		}
		s.replayed(ctx, existing)
		return existing, true, nil
	}
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evaluation")
	}
	s.metrics.ObserveStage("persist", time.Since(stageStart))

	source := string(outcome.Compensation.Source)
	s.metrics.IncrementOutcome(source, string(outcome.Profile.ScopeClass))
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	span.SetAttributes(
		attribute.String("evaluation.id", rec.ID.String()),
		attribute.String("compensation.source", source),
		attribute.Int("compensation.percent", outcome.Compensation.Percent),
	)

	s.logger.InfoContext(ctx, "claim evaluated",
		"evaluation_id", rec.ID.String(),
		"catalog_version", rec.CatalogVersion,
		"scope", outcome.Profile.ScopeClass,
		"compensation_source", source,
		"compensation_percent", outcome.Compensation.Percent,
		"net_to_client", outcome.Claim.NetToClient.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, false, nil
}

func (s *Service) persist(ctx context.Context, rec *Record) error {
	save := func(ctx context.Context) error {
		if err := s.store.Save(ctx, rec); err != nil {
			return err
		}
		s.emit(ctx, rec, audit.EventClaimEvaluated)
		return nil
	}
	if s.tx == nil {
		return save(ctx)
	}
	return s.tx.RunInTx(ctx, save)
}

func (s *Service) replayed(ctx context.Context, rec *Record) {
	s.metrics.IncrementReplay()
	s.logger.InfoContext(ctx, "evaluation replayed",
		"evaluation_id", rec.ID.String(),
		"fingerprint", rec.Fingerprint,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, rec, audit.EventEvaluationReplayed)
}

func (s *Service) emit(ctx context.Context, rec *Record, action audit.AuditEvent) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:         string(action),
		Subject:        rec.ID.String(),
		Fingerprint:    rec.Fingerprint,
		CatalogVersion: rec.CatalogVersion,
		Decision:       string(rec.Compensation.Source),
		NetAmount:      rec.Claim.NetToClient.Amount.StringFixed(2),
		Currency:       string(rec.Claim.NetToClient.Currency),
		RequestID:      requestcontext.RequestID(ctx),
	}
	if len(rec.Compensation.Notes) > 0 {
		event.Reason = rec.Compensation.Notes[0]
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"evaluation_id", event.Subject,
			"error", err,
		)
	}
}

// EvaluateBatch evaluates every request concurrently. Items keep request
// order; a failing item carries its own error and does not fail the batch.
func (s *Service) EvaluateBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "batch must contain at least one request")
	}
	if len(reqs) > s.batchLimit {
		return nil, dErrors.Newf(dErrors.CodeValidation, "batch must not exceed %d requests", s.batchLimit)
	}
	s.metrics.ObserveBatchSize(len(reqs))

	// One clock reading for the whole batch.
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, replayed, err := s.Evaluate(gctx, req)
			items[i] = BatchItem{Record: rec, Replayed: replayed, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "batch evaluation aborted")
	}
	return items, nil
}

// Get returns a stored evaluation.
func (s *Service) Get(ctx context.Context, id domain.EvaluationID) (*Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "evaluation not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evaluation")
	}
	return rec, nil
}
