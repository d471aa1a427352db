package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type fakeTx struct {
	pgx.Tx
	owner *fakeBeginner
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.owner.commits++
	return t.owner.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.owner.rollbacks++
	return nil
}

type fakeBeginner struct {
	begins    int
	commits   int
	rollbacks int
	commitErr error
	beginErr  error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.begins++
	return &fakeTx{owner: b}, nil
}

func TestWithTxCommits(t *testing.T) {
	pool := &fakeBeginner{}
	err := WithTx(context.Background(), pool, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, pool.begins)
	require.Equal(t, 1, pool.commits)
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	pool := &fakeBeginner{}
	attempts := 0
	err := WithTx(context.Background(), pool, func(pgx.Tx) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: codeSerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, 1, pool.commits)
	require.Equal(t, 3, pool.rollbacks)
}

func TestWithTxGivesUpAfterMaxAttempts(t *testing.T) {
	pool := &fakeBeginner{}
	err := WithTx(context.Background(), pool, func(pgx.Tx) error {
		return &pgconn.PgError{Code: codeDeadlockDetected}
	})
	require.True(t, IsRetryable(err))
	require.Equal(t, MaxTxAttempts, pool.begins)
	require.Zero(t, pool.commits)
}

func TestWithTxDoesNotRetryBusinessErrors(t *testing.T) {
	pool := &fakeBeginner{}
	boom := errors.New("unbalanced")
	err := WithTx(context.Background(), pool, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, pool.begins)
}

func TestWithTxWrapsBeginAndCommitErrors(t *testing.T) {
	err := WithTx(context.Background(), &fakeBeginner{beginErr: errors.New("refused")}, func(pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "begin tx")

	err = WithTx(context.Background(), &fakeBeginner{commitErr: errors.New("lost")}, func(pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "commit tx")
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	require.False(t, IsUniqueViolation(errors.New("plain")))
	require.False(t, IsRetryable(errors.New("plain")))
}
