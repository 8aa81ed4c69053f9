package tx

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithoutTransaction(t *testing.T) {
	ctx := context.Background()

	_, ok := From(ctx)
	assert.False(t, ok)
	assert.Equal(t, ctx, WithTx(ctx, nil), "nil tx leaves the context alone")

	// sql.Open does not connect.
	db, err := sql.Open("postgres", "postgres://railclaim@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Same(t, db, ExecutorFrom(ctx, db))
}

func TestRunReusesTransactionInContext(t *testing.T) {
	tx := &sql.Tx{}
	ctx := WithTx(context.Background(), tx)

	called := false
	err := Run(ctx, nil, func(inner context.Context) error {
		called = true
		got, ok := From(inner)
		assert.True(t, ok)
		assert.Same(t, tx, got)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
