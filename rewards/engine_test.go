package rewards_test

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/staking/models"
	"github.com/ferreirogomes/staking/rewards"
)

const t0 = int64(1_700_000_000)

func stakedEntry(amount uint64, start int64) models.StakeAccount {
	return models.StakeAccount{
		Owner:            solana.NewWallet().PublicKey(),
		StakedAmount:     amount,
		AccrualStartTime: start,
	}
}

func TestIdleEntryAccruesNothing(t *testing.T) {
	engine := rewards.NewEngine(1)
	entry := models.NewStakeAccount(solana.NewWallet().PublicKey())
	entry.UnclaimedRewards = 77

	for _, now := range []int64{0, 1, t0, math.MaxInt64} {
		e := entry
		require.NoError(t, engine.Accrue(&e, now))
		assert.Equal(t, uint64(77), e.UnclaimedRewards)
		assert.Equal(t, int64(0), e.AccrualStartTime)
	}
}

func TestAccrueIsAdditive(t *testing.T) {
	engine := rewards.NewEngine(1)
	entry := stakedEntry(100, t0)
	entry.UnclaimedRewards = 500

	require.NoError(t, engine.Accrue(&entry, t0+10))
	assert.Equal(t, uint64(1500), entry.UnclaimedRewards)
	assert.Equal(t, t0, entry.AccrualStartTime, "o início do acúmulo é responsabilidade de quem chama")
}

func TestSplitAccrualMatchesSingleAccrual(t *testing.T) {
	engine := rewards.NewEngine(3)
	t1, t2 := t0+7, t0+19

	single := stakedEntry(250, t0)
	require.NoError(t, engine.Accrue(&single, t2))

	split := stakedEntry(250, t0)
	require.NoError(t, engine.Accrue(&split, t1))
	split.AccrualStartTime = t1
	require.NoError(t, engine.Accrue(&split, t2))

	assert.Equal(t, single.UnclaimedRewards, split.UnclaimedRewards)
	assert.Equal(t, uint64(19*3*250), split.UnclaimedRewards)
}

func TestPendingAtStartIsZero(t *testing.T) {
	engine := rewards.NewEngine(5)
	pending, err := engine.Pending(stakedEntry(100, t0), t0)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestAccrueFailsClosedOnOverflow(t *testing.T) {
	engine := rewards.NewEngine(math.MaxUint64)
	entry := stakedEntry(2, t0)

	err := engine.Accrue(&entry, t0+1)
	assert.ErrorIs(t, err, rewards.ErrArithmeticOverflow)
	assert.Zero(t, entry.UnclaimedRewards)

	engine = rewards.NewEngine(1)
	entry = stakedEntry(1, t0)
	entry.UnclaimedRewards = math.MaxUint64
	err = engine.Accrue(&entry, t0+1)
	assert.ErrorIs(t, err, rewards.ErrArithmeticOverflow)
	assert.Equal(t, uint64(math.MaxUint64), entry.UnclaimedRewards)
}

func TestAccrueRejectsTimeBeforeStart(t *testing.T) {
	engine := rewards.NewEngine(1)
	entry := stakedEntry(10, t0)
	_, err := engine.Pending(entry, t0-1)
	assert.ErrorIs(t, err, rewards.ErrArithmeticOverflow)
}
