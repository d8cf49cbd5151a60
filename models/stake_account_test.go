package models_test

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/staking/models"
)

func TestStakeAccountLayout(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	acct := models.StakeAccount{
		Owner:            owner,
		StakedAmount:     100,
		AccrualStartTime: 1_700_000_000,
		UnclaimedRewards: 1600,
	}

	data, err := acct.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, models.StakeAccountSize)

	discriminator := sha256.Sum256([]byte("account:StakeAccount"))
	assert.Equal(t, discriminator[:8], data[:8])
	assert.Equal(t, owner.Bytes(), data[8:40])
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(data[40:48]))
	assert.Equal(t, uint64(1_700_000_000), binary.LittleEndian.Uint64(data[48:56]))
	assert.Equal(t, uint64(1600), binary.LittleEndian.Uint64(data[56:64]))

	var decoded models.StakeAccount
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, acct, decoded)
}

func TestStakeAccountRejectsForeignData(t *testing.T) {
	data, err := models.NewStakeAccount(solana.NewWallet().PublicKey()).MarshalBinary()
	require.NoError(t, err)

	var acct models.StakeAccount
	assert.ErrorIs(t, acct.UnmarshalBinary(data[:40]), models.ErrInvalidAccountData)

	data[0] ^= 0xff
	assert.ErrorIs(t, acct.UnmarshalBinary(data), models.ErrDiscriminatorMismatch)

	token, err := models.TokenAccount{Amount: 5}.MarshalBinary()
	require.NoError(t, err)
	assert.ErrorIs(t, acct.UnmarshalBinary(token), models.ErrInvalidAccountData)
}

func TestStakeAccountConsistency(t *testing.T) {
	acct := models.NewStakeAccount(solana.NewWallet().PublicKey())
	assert.True(t, acct.Consistent())
	assert.False(t, acct.IsStaking())

	acct.StakedAmount = 10
	assert.False(t, acct.Consistent())

	acct.AccrualStartTime = 42
	assert.True(t, acct.Consistent())
	assert.True(t, acct.IsStaking())
}

func TestTokenAccountLayout(t *testing.T) {
	acct := models.TokenAccount{
		Mint:   solana.NewWallet().PublicKey(),
		Owner:  solana.NewWallet().PublicKey(),
		Amount: 1000,
	}
	data, err := acct.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, models.TokenAccountSize)
	assert.Equal(t, acct.Mint.Bytes(), data[:32])
	assert.Equal(t, acct.Owner.Bytes(), data[32:64])

	var decoded models.TokenAccount
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, acct, decoded)
}

func TestPoolKindString(t *testing.T) {
	assert.Equal(t, "stake", models.StakePool.String())
	assert.Equal(t, "reward", models.RewardPool.String())
	assert.Equal(t, "PoolKind(7)", models.PoolKind(7).String())
}

func TestNonceAccountLayout(t *testing.T) {
	acct := models.NonceAccount{Signer: solana.NewWallet().PublicKey(), Last: 7}
	data, err := acct.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, models.NonceAccountSize)

	discriminator := sha256.Sum256([]byte("account:NonceAccount"))
	assert.Equal(t, discriminator[:8], data[:8])
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[40:48]))

	var decoded models.NonceAccount
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, acct, decoded)

	stake, err := models.NewStakeAccount(acct.Signer).MarshalBinary()
	require.NoError(t, err)
	assert.ErrorIs(t, decoded.UnmarshalBinary(stake), models.ErrInvalidAccountData)
}
