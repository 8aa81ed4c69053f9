package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"railclaim/internal/decision"
	"railclaim/pkg/domain"
	"railclaim/pkg/platform/httputil"
	"railclaim/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for evaluation operations.
type Service interface {
	Evaluate(ctx context.Context, req decision.Request) (*decision.Record, bool, error)
	EvaluateBatch(ctx context.Context, reqs []decision.Request) ([]decision.BatchItem, error)
	Get(ctx context.Context, id domain.EvaluationID) (*decision.Record, error)
}

// Handler wires evaluation endpoints to the decision service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evaluation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/evaluations", h.HandleEvaluate)
	r.Post("/v1/evaluations/batch", h.HandleEvaluateBatch)
	r.Get("/v1/evaluations/{id}", h.HandleGet)
}

// HandleEvaluate handles POST /v1/evaluations requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, replayed, err := h.service.Evaluate(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evaluation served",
		"request_id", requestID,
		"evaluation_id", rec.ID.String(),
		"replayed", replayed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromRecord(rec, replayed))
}

// HandleEvaluateBatch handles POST /v1/evaluations/batch requests.
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	batch, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	invalid := make(map[int]error)
	valid := make([]decision.Request, 0, len(batch.Requests))
	positions := make([]int, 0, len(batch.Requests))
	for i := range batch.Requests {
		if err := batch.Requests[i].Validate(); err != nil {
			invalid[i] = err
			continue
		}
		valid = append(valid, batch.Requests[i].ToDomain())
		positions = append(positions, i)
	}

	var items []decision.BatchItem
	if len(valid) > 0 {
		var err error
		items, err = h.service.EvaluateBatch(ctx, valid)
		if err != nil {
			h.logger.ErrorContext(ctx, "batch evaluation failed",
				"request_id", requestID,
				"size", len(batch.Requests),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
	}

	resp := FromBatch(len(batch.Requests), invalid, items, positions)
	h.logger.InfoContext(ctx, "batch evaluation served",
		"request_id", requestID,
		"size", len(batch.Requests),
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/evaluations/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseEvaluationID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid evaluation id",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Get(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "evaluation lookup failed",
			"request_id", requestID,
			"evaluation_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, false))
}
