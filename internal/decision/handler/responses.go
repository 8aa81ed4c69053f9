package handler

import (
	"net/http"

	"railclaim/internal/decision"
	dErrors "railclaim/pkg/domain-errors"
	"railclaim/pkg/platform/httputil"
)

// EvaluationResponse is a stored evaluation. Replayed is true when an
// earlier identical request produced it.
type EvaluationResponse struct {
	*decision.Record
	Replayed bool `json:"replayed"`
}

func FromRecord(rec *decision.Record, replayed bool) *EvaluationResponse {
	return &EvaluationResponse{Record: rec, Replayed: replayed}
}

// BatchResponse keeps request order. Each item holds an evaluation or an
// error.
type BatchResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

type BatchItemResponse struct {
	Index      int                     `json:"index"`
	Status     int                     `json:"status"`
	Evaluation *EvaluationResponse     `json:"evaluation,omitempty"`
	Error      *httputil.ErrorResponse `json:"error,omitempty"`
}

func itemError(index int, err error) BatchItemResponse {
	code := dErrors.CodeOf(err)
	body := &httputil.ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := dErrors.As(err); ok {
			body.ErrorDescription = de.Message
		}
	}
	return BatchItemResponse{Index: index, Status: httputil.StatusFor(code), Error: body}
}

// FromBatch merges pre-validation failures with service results. items[i]
// answers validRequests[i]; positions maps it back to the request index.
func FromBatch(size int, invalid map[int]error, items []decision.BatchItem, positions []int) *BatchResponse {
	resp := &BatchResponse{Items: make([]BatchItemResponse, size)}
	for idx, err := range invalid {
		resp.Items[idx] = itemError(idx, err)
	}
	for i, item := range items {
		idx := positions[i]
		if item.Err != nil {
			resp.Items[idx] = itemError(idx, item.Err)
			continue
		}
		resp.Items[idx] = BatchItemResponse{
			Index:      idx,
			Status:     http.StatusOK,
			Evaluation: FromRecord(item.Record, item.Replayed),
		}
	}
	for _, item := range resp.Items {
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp
}
