package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return t.commitErr
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestRunInTxCommitsAndPassesTransaction(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}

	var received pgx.Tx
	err := runInTx(context.Background(), beginner, func(ctx context.Context, tx pgx.Tx) error {
		received = tx
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, pgx.Tx(beginner.tx), received, "callback must run on the opened transaction")
	assert.True(t, beginner.tx.committed)
	assert.False(t, beginner.tx.rolledBack)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	sentinel := errors.New("insert failed")

	err := runInTx(context.Background(), beginner, func(ctx context.Context, tx pgx.Tx) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel, "callback errors must come back unwrapped")
	assert.True(t, beginner.tx.rolledBack)
	assert.False(t, beginner.tx.committed)
}

func TestRunInTxBeginFailure(t *testing.T) {
	beginner := &fakeBeginner{beginErr: errors.New("pool exhausted")}

	err := runInTx(context.Background(), beginner, func(ctx context.Context, tx pgx.Tx) error {
		t.Fatal("callback must not run when begin fails")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestRunInTxCommitFailure(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("connection lost")}}

	err := runInTx(context.Background(), beginner, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}
