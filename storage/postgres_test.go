package storage

import (
	"context"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Os testes de postgres só rodam com STAKING_TEST_POSTGRES_DSN definido.
func newTestPostgres(t *testing.T) *Postgres {
	dsn := os.Getenv("STAKING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STAKING_TEST_POSTGRES_DSN não definido")
	}
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	_, err = p.DB().Exec(`DELETE FROM accounts`)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPostgresCreateGetPut(t *testing.T) {
	ctx := context.Background()
	p := newTestPostgres(t)
	addr := solana.NewWallet().PublicKey()

	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		if err := tx.Create(ctx, addr, []byte("v1")); err != nil {
			return err
		}
		assert.ErrorIs(t, tx.Create(ctx, addr, []byte("v2")), ErrAccountExists)
		return tx.Put(ctx, addr, []byte("v3"))
	}))

	require.NoError(t, p.View(ctx, func(tx Tx) error {
		data, ok, err := tx.Get(ctx, addr)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v3"), data)
		return nil
	}))
}

func TestPostgresRollback(t *testing.T) {
	ctx := context.Background()
	p := newTestPostgres(t)
	addr := solana.NewWallet().PublicKey()

	err := p.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.Create(ctx, addr, []byte("v1")))
		return ErrAccountNotFound
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, p.View(ctx, func(tx Tx) error {
		_, ok, err := tx.Get(ctx, addr)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}
