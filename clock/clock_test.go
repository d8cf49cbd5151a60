package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) GetBlockTime(ctx context.Context, block uint64) (*solana.UnixTimeSeconds, error) {
	args := m.Called(block)
	bt, _ := args.Get(0).(*solana.UnixTimeSeconds)
	return bt, args.Error(1)
}

func TestSystemClock(t *testing.T) {
	now, err := System{}.Now(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), now, 2)
}

func TestManualClock(t *testing.T) {
	c := NewManual(100)
	c.Advance(5)
	now, _ := c.Now(context.Background())
	assert.Equal(t, int64(105), now)
	c.Set(7)
	now, _ = c.Now(context.Background())
	assert.Equal(t, int64(7), now)
}

func TestMonotonicNeverGoesBack(t *testing.T) {
	ctx := context.Background()
	inner := NewManual(100)
	c := NewMonotonic(inner)

	now, err := c.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), now)

	inner.Set(90)
	now, err = c.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), now)

	inner.Set(120)
	now, err = c.Now(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), now)
}

func TestClusterClock(t *testing.T) {
	client := new(mockRPC)
	blockTime := solana.UnixTimeSeconds(1_700_000_123)
	client.On("GetSlot", rpc.CommitmentFinalized).Return(uint64(42), nil).Once()
	client.On("GetBlockTime", uint64(42)).Return(&blockTime, nil).Once()

	c := &Cluster{RPCClient: client, Commitment: rpc.CommitmentFinalized}
	now, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_123), now)
	client.AssertExpectations(t)
}

func TestClusterClockErrors(t *testing.T) {
	client := new(mockRPC)
	client.On("GetSlot", rpc.CommitmentFinalized).Return(uint64(0), errors.New("rpc fora do ar")).Once()
	c := &Cluster{RPCClient: client, Commitment: rpc.CommitmentFinalized}
	_, err := c.Now(context.Background())
	assert.Error(t, err)

	client = new(mockRPC)
	client.On("GetSlot", rpc.CommitmentFinalized).Return(uint64(7), nil).Once()
	client.On("GetBlockTime", uint64(7)).Return(nil, nil).Once()
	c = &Cluster{RPCClient: client, Commitment: rpc.CommitmentFinalized}
	_, err = c.Now(context.Background())
	assert.ErrorIs(t, err, ErrNoBlockTime)
}
