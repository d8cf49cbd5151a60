package custody_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/staking/addresses"
	"github.com/ferreirogomes/staking/custody"
	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/storage"
	"github.com/ferreirogomes/staking/tokenledger"
)

var programID = solana.MustPublicKeyFromBase58("4SgBV6KvC6TvRMPQqwcuNzfNDYcXKCo5TR5T3PFxBau5")

func newManager(t *testing.T) (*custody.Manager, *tokenledger.Ledger, storage.Store) {
	deriver, err := addresses.NewDeriver(programID, 32)
	require.NoError(t, err)
	ledger := tokenledger.New()
	return custody.NewManager(deriver, ledger), ledger, storage.NewMemory()
}

func TestInitializeCreatesSelfOwnedPools(t *testing.T) {
	ctx := context.Background()
	m, ledger, store := newManager(t)
	mint := solana.NewWallet().PublicKey()

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		vault, err := m.Initialize(ctx, tx, mint)
		require.NoError(t, err)
		assert.Equal(t, models.StakePool, vault.Stake.Kind)
		assert.Equal(t, models.RewardPool, vault.Reward.Kind)
		assert.NotEqual(t, vault.Stake.Address, vault.Reward.Address)

		for _, p := range []models.Pool{vault.Stake, vault.Reward} {
			acct, err := ledger.Account(ctx, tx, p.Address)
			require.NoError(t, err)
			assert.Equal(t, p.Address, acct.Owner)
			assert.Equal(t, mint, acct.Mint)
		}
		return ledger.MintTo(ctx, tx, vault.Reward.Address, 500)
	}))

	// reinicializar não zera o saldo
	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		vault, err := m.Initialize(ctx, tx, mint)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), vault.RewardBalance)
		return nil
	}))
}

func TestReleaseIsAuthorizedByPoolAddress(t *testing.T) {
	ctx := context.Background()
	m, ledger, store := newManager(t)
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	ownerTokens := solana.NewWallet().PublicKey()

	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		vault, err := m.Initialize(ctx, tx, mint)
		require.NoError(t, err)
		_, err = ledger.Open(ctx, tx, ownerTokens, mint, owner)
		require.NoError(t, err)
		require.NoError(t, ledger.MintTo(ctx, tx, ownerTokens, 100))

		require.NoError(t, m.Deposit(ctx, tx, vault.Stake, ownerTokens, 70, owner))
		require.NoError(t, m.Release(ctx, tx, vault.Stake, ownerTokens, 30))

		// o owner não consegue movimentar o cofre com a própria assinatura
		err = ledger.Transfer(ctx, tx, vault.Stake.Address, ownerTokens, 10, owner)
		assert.ErrorIs(t, err, tokenledger.ErrUnauthorized)

		err = m.Release(ctx, tx, vault.Stake, ownerTokens, 41)
		assert.ErrorIs(t, err, tokenledger.ErrInsufficientBalance)
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		vault, err := m.Vault(ctx, tx, mint)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), vault.StakeBalance)
		balance, err := ledger.Balance(ctx, tx, ownerTokens)
		require.NoError(t, err)
		assert.Equal(t, uint64(60), balance)
		return nil
	}))
}

func TestVaultNotInitialized(t *testing.T) {
	ctx := context.Background()
	m, _, store := newManager(t)

	err := store.View(ctx, func(tx storage.Tx) error {
		_, err := m.Vault(ctx, tx, solana.NewWallet().PublicKey())
		return err
	})
	assert.ErrorIs(t, err, custody.ErrVaultNotInitialized)
}
