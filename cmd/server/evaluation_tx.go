package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "railclaim/pkg/domain-errors"
	txcontext "railclaim/pkg/platform/tx"
)

const defaultEvaluationTxTimeout = 5 * time.Second

// evaluationPostgresTx commits an evaluation record and its audit event in
// one transaction. Stores pick the transaction up from the context.
type evaluationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newEvaluationPostgresTx(db *sql.DB) *evaluationPostgresTx {
	return &evaluationPostgresTx{db: db}
}

func (t *evaluationPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultEvaluationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return txcontext.Run(ctx, t.db, fn)
}
