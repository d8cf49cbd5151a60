package addresses

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/staking/models"
)

var testProgramID = solana.MustPublicKeyFromBase58("4SgBV6KvC6TvRMPQqwcuNzfNDYcXKCo5TR5T3PFxBau5")

func newTestDeriver(t *testing.T, cacheSize int) *Deriver {
	d, err := NewDeriver(testProgramID, cacheSize)
	require.NoError(t, err)
	return d
}

func TestStakeAccountMatchesProgramAddress(t *testing.T) {
	d := newTestDeriver(t, 0)
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	got, err := d.StakeAccount(mint, owner)
	require.NoError(t, err)

	want, bump, err := solana.FindProgramAddress([][]byte{[]byte("stake-account"), mint.Bytes(), owner.Bytes()}, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Address)
	assert.Equal(t, bump, got.Bump)
}

func TestDeriveIsDeterministicAndDistinct(t *testing.T) {
	cached := newTestDeriver(t, 16)
	plain := newTestDeriver(t, 0)
	mint := solana.NewWallet().PublicKey()
	otherMint := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	a1, err := cached.StakeAccount(mint, alice)
	require.NoError(t, err)
	a2, err := cached.StakeAccount(mint, alice)
	require.NoError(t, err)
	a3, err := plain.StakeAccount(mint, alice)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, a1, a3)

	b, err := cached.StakeAccount(mint, bob)
	require.NoError(t, err)
	c, err := cached.StakeAccount(otherMint, alice)
	require.NoError(t, err)
	stake, err := cached.Pool(models.StakePool, mint)
	require.NoError(t, err)
	reward, err := cached.Pool(models.RewardPool, mint)
	require.NoError(t, err)

	seen := map[solana.PublicKey]bool{}
	for _, addr := range []solana.PublicKey{a1.Address, b.Address, c.Address, stake.Address, reward.Address} {
		assert.False(t, seen[addr], "endereço repetido %s", addr)
		seen[addr] = true
	}
}

func TestSignerRecomposesPoolAddress(t *testing.T) {
	d := newTestDeriver(t, 0)
	mint := solana.NewWallet().PublicKey()

	for _, kind := range []models.PoolKind{models.StakePool, models.RewardPool} {
		pool, err := d.Pool(kind, mint)
		require.NoError(t, err)
		tag, err := PoolTag(kind)
		require.NoError(t, err)

		signer, err := d.Signer(tag, pool.Bump, mint)
		require.NoError(t, err)
		assert.Equal(t, pool.Address, signer)
	}
}

func TestDeriveRejectsMalformedInputs(t *testing.T) {
	d := newTestDeriver(t, 0)
	mint := solana.NewWallet().PublicKey()

	_, err := d.StakeAccount(solana.PublicKey{}, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrMalformedSeeds)

	_, err = d.StakeAccount(mint, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrMalformedSeeds)

	_, err = d.Derive(make([]byte, 33), mint)
	assert.ErrorIs(t, err, ErrMalformedSeeds)

	_, err = d.Pool(models.PoolKind(9), mint)
	assert.ErrorIs(t, err, ErrMalformedSeeds)

	_, err = NewDeriver(solana.PublicKey{}, 0)
	assert.ErrorIs(t, err, ErrMalformedSeeds)
}

func TestTokenAccountIsAssociatedAddress(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	got, err := TokenAccount(owner, mint)
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCacheKeyDoesNotCollide(t *testing.T) {
	a := cacheKey([][]byte{[]byte("ab"), []byte("c")})
	b := cacheKey([][]byte{[]byte("a"), []byte("bc")})
	assert.NotEqual(t, a, b)
}

func TestNonceAddressIsPerSigner(t *testing.T) {
	d := newTestDeriver(t, 16)
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	got, err := d.Nonce(alice)
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("signer-nonce"), alice.Bytes()}, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Address)

	other, err := d.Nonce(bob)
	require.NoError(t, err)
	assert.NotEqual(t, got.Address, other.Address)

	_, err = d.Nonce(solana.PublicKey{})
	assert.ErrorIs(t, err, ErrMalformedSeeds)
}
