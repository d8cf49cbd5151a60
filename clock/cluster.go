package clock

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrNoBlockTime = errors.New("bloco sem timestamp")

// RPCClient é o subconjunto do cliente RPC da Solana usado pelo relógio.
type RPCClient interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	GetBlockTime(ctx context.Context, block uint64) (*solana.UnixTimeSeconds, error)
}

var _ RPCClient = (*rpc.Client)(nil)

// Cluster lê o tempo do cluster Solana: o timestamp do último slot finalizado.
type Cluster struct {
	RPCClient  RPCClient
	Commitment rpc.CommitmentType
}

// NewCluster cria um relógio ligado ao endpoint RPC informado.
func NewCluster(rpcEndpoint string) *Cluster {
	return &Cluster{
		RPCClient:  rpc.New(rpcEndpoint),
		Commitment: rpc.CommitmentFinalized,
	}
}

func (c *Cluster) Now(ctx context.Context) (int64, error) {
	slot, err := c.RPCClient.GetSlot(ctx, c.Commitment)
	if err != nil {
		return 0, fmt.Errorf("falha ao obter slot: %w", err)
	}
	blockTime, err := c.RPCClient.GetBlockTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("falha ao obter block time do slot %d: %w", slot, err)
	}
	if blockTime == nil {
		return 0, fmt.Errorf("%w: slot %d", ErrNoBlockTime, slot)
	}
	return int64(*blockTime), nil
}
